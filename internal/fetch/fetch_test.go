package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blog/list.json":
			w.Write([]byte(`{"a.md":{}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL+"/blog", nil)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}

	text, err := f.Fetch(context.Background(), "list.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if text != `{"a.md":{}}` {
		t.Errorf("text = %q", text)
	}

	if _, err := f.Fetch(context.Background(), "/missing.md"); !errors.Is(err, ErrStatus) {
		t.Errorf("expected ErrStatus, got %v", err)
	}
}

func TestDirFetcher(t *testing.T) {
	fsys := fstest.MapFS{
		"posts/a.md": {Data: []byte("# A\n")},
	}
	f := NewDirFetcher(fsys)

	text, err := f.Fetch(context.Background(), "/posts/a.md")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if text != "# A\n" {
		t.Errorf("text = %q", text)
	}

	if _, err := f.Fetch(context.Background(), "../etc/passwd"); err == nil {
		t.Error("expected error for path escaping the root")
	}
	if _, err := f.Fetch(context.Background(), "nope.md"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewPicksImplementation(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := New(dir)
	if err != nil {
		t.Fatalf("New(dir): %v", err)
	}
	if _, ok := f.(*DirFetcher); !ok {
		t.Errorf("expected *DirFetcher, got %T", f)
	}

	f, err = New("https://example.com/")
	if err != nil {
		t.Fatalf("New(url): %v", err)
	}
	if _, ok := f.(*HTTPFetcher); !ok {
		t.Errorf("expected *HTTPFetcher, got %T", f)
	}

	if _, err := New(filepath.Join(dir, "x.md")); err == nil {
		t.Error("expected error for a file root")
	}
}

func TestFetchAsync(t *testing.T) {
	f := NewDirFetcher(fstest.MapFS{"a.md": {Data: []byte("body")}})
	log := zaptest.NewLogger(t)

	got := make(chan string, 2)
	FetchAsync(context.Background(), f, "a.md", log, func(text string) { got <- text })
	select {
	case text := <-got:
		if text != "body" {
			t.Errorf("text = %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onComplete never fired")
	}

	FetchAsync(context.Background(), f, "missing.md", log, func(text string) { got <- text })
	select {
	case text := <-got:
		t.Errorf("onComplete fired for a failed fetch: %q", text)
	case <-time.After(100 * time.Millisecond):
	}
}
