package widget

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/loader"
	"github.com/ziadkadry99/markpage/internal/manifest"
)

type fixedCounter struct {
	n   int64
	err error
}

func (c fixedCounter) Hit(ctx context.Context, pageID string) (int64, error) { return c.n, c.err }

func renderedPage(t *testing.T) *document.Page {
	t.Helper()
	page, err := document.New("A")
	if err != nil {
		t.Fatal(err)
	}
	if err := page.Swap("<h1>A</h1>"); err != nil {
		t.Fatal(err)
	}
	return page
}

var meta = manifest.Metadata{
	Title:       "A <post>",
	ModifyDate:  "2020-01-01",
	Keywords:    "x,y",
	Description: "About A",
}

func TestWidgetConfig(t *testing.T) {
	b := New(Options{Comments: CommentConfig{AppID: "id", AppKey: "key", Placeholder: "Say hi", Region: "us"}}, nil)
	cfg := b.WidgetConfig("a.md")
	want := WidgetConfig{Path: "a.md", El: "#vcomments", AppID: "id", AppKey: "key", Placeholder: "Say hi", Verify: true, Visitor: true, Region: "us"}
	if cfg != want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}

	data, _ := json.Marshal(New(Options{}, nil).WidgetConfig("b.md"))
	if strings.Contains(string(data), "region") {
		t.Errorf("empty region should be omitted: %s", data)
	}
	for _, key := range []string{`"path":"b.md"`, `"el":"#vcomments"`, `"appId"`, `"appKey"`, `"placeholder"`, `"verify":true`, `"visitor":true`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("missing %s in %s", key, data)
		}
	}
}

func TestAttachBuildsFragmentsInOrder(t *testing.T) {
	page := renderedPage(t)
	ld := loader.New(page, loader.BuiltinTransport{}, nil)
	b := New(Options{
		SiteTitle: "Blog",
		Comments:  CommentConfig{LibraryURL: "/3rd-lib/Valine.min.js", AppID: "id", AppKey: "key"},
		Counter:   fixedCounter{n: 7},
	}, zaptest.NewLogger(t))

	if err := b.Attach(context.Background(), page, ld, "a.md", meta); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	out, _ := page.HTML()

	header := strings.Index(out, `<header class="page-header">`)
	lead := strings.Index(out, `<p class="lead">`)
	panel := strings.Index(out, `class="marked-panel"`)
	comments := strings.Index(out, `<div id="vcomments" class="comment-panel">`)
	script := strings.Index(out, `new Valine(`)
	if header < 0 || lead < 0 || panel < 0 || comments < 0 || script < 0 {
		t.Fatalf("missing fragment:\n%s", out)
	}
	if !(header < lead && lead < panel && panel < comments && comments < script) {
		t.Errorf("fragments out of order: header=%d lead=%d panel=%d comments=%d script=%d", header, lead, panel, comments, script)
	}

	for _, want := range []string{
		`A &lt;post&gt;`,
		`<time>2020-01-01</time>`,
		`id="a.md"`,
		`<i class="leancloud-visitors-count">7</i>`,
		`href="./?k=x"`,
		`About A`,
		`"path":"a.md"`,
		`src="/3rd-lib/Valine.min.js"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestAttachWithoutLibrary(t *testing.T) {
	page := renderedPage(t)
	ld := loader.New(page, loader.BuiltinTransport{}, nil)
	b := New(Options{Counter: fixedCounter{err: errors.New("db down")}}, zaptest.NewLogger(t))
	if err := b.Attach(context.Background(), page, ld, "a.md", manifest.Metadata{Title: "A"}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	out, _ := page.HTML()
	if strings.Contains(out, "new Valine") {
		t.Error("widget constructed without a library")
	}
	if !strings.Contains(out, `<i class="leancloud-visitors-count"></i>`) {
		t.Error("counter placeholder should be empty when the counter fails")
	}
}

func TestAttachStallsOnMissingLibrary(t *testing.T) {
	page := renderedPage(t)
	stall := loader.TransportFunc(func(ctx context.Context, url string, notify func(loader.ReadyState)) {})
	ld := loader.New(page, stall, nil)
	b := New(Options{Comments: CommentConfig{LibraryURL: "https://cdn.invalid/valine.js"}}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := b.Attach(ctx, page, ld, "a.md", meta); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected stall, got %v", err)
	}
	out, _ := page.HTML()
	if strings.Contains(out, "new Valine") {
		t.Error("widget constructed before its library was ready")
	}
}
