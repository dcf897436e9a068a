package site

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"github.com/ziadkadry99/markpage/internal/db"
	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/fetch"
	"github.com/ziadkadry99/markpage/internal/filter"
	"github.com/ziadkadry99/markpage/internal/manifest"
	"github.com/ziadkadry99/markpage/internal/progress"
	"github.com/ziadkadry99/markpage/internal/render"
	"github.com/ziadkadry99/markpage/internal/visits"
	"github.com/ziadkadry99/markpage/internal/widget"
)

const listJSON = `{
  "hello.md": {"title": "Hello", "modifydate": "2020-01-01", "keywords": "go, web", "description": "First post"},
  "notes.md": {"title": "", "modifydate": "2020-02-01", "keywords": "misc"},
  "ext": {"title": "Elsewhere", "modifydate": "2020-03-01", "keywords": "go", "href": "https://example.com/"}
}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"list.json": {Data: []byte(listJSON)},
		"hello.md":  {Data: []byte("## One\n\ntext\n\n## Two\n\n```go\nx := 1\n```\n")},
		"notes.md":  {Data: []byte("---\ntitle: Front Title\n---\nsome notes\n")},
	}
}

func newRenderer(t *testing.T, fsys fstest.MapFS, counter widget.Counter) *Renderer {
	t.Helper()
	log := zaptest.NewLogger(t)
	pipeline := render.New(render.Options{
		HighlighterURL: "builtin:highlight",
		ConverterURL:   "builtin:markdown",
		Styles:         []string{"/style.css"},
		Hooks:          []render.Hook{render.NavHook},
	}, log)
	widgets := widget.New(widget.Options{
		SiteTitle: "Blog",
		Comments: widget.CommentConfig{
			LibraryURL: "builtin:valine",
			AppID:      "id",
			AppKey:     "key",
		},
		Counter: counter,
	}, log)
	return NewRenderer(Options{
		SiteTitle:    "Blog",
		ManifestPath: "list.json",
		Fetcher:      fetch.NewDirFetcher(fsys),
		Pipeline:     pipeline,
		Widgets:      widgets,
	}, log)
}

func TestRenderIndex(t *testing.T) {
	r := newRenderer(t, testFS(), nil)
	rendered, err := r.Render(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered.ID != manifest.IndexID || rendered.Filter == nil {
		t.Fatalf("expected index page, got %+v", rendered)
	}
	out, err := rendered.Page.HTML()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`class="marked-panel"`, `data-keyword="go"`, `href="?p=hello.md"`, `href="https://example.com/"`} {
		if !strings.Contains(out, want) {
			t.Errorf("index missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, `id="loading"`) {
		t.Error("loading node still present")
	}
	if strings.Contains(out, "page-header") {
		t.Error("index page must not carry widgets")
	}
	if strings.Contains(out, "builtin:") {
		t.Errorf("in-process resource leaked into the page:\n%s", out)
	}
}

func TestRenderIndexWithToggles(t *testing.T) {
	r := newRenderer(t, testFS(), nil)
	rendered, err := r.Render(context.Background(), Request{Toggles: []string{"misc"}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := map[string]bool{}
	for _, e := range rendered.Filter.Visibility() {
		got[e.Link] = e.Visible
	}
	want := map[string]bool{"?p=hello.md": false, "?p=notes.md": true, "https://example.com/": false}
	for link, visible := range want {
		if got[link] != visible {
			t.Errorf("visible[%s] = %v, want %v", link, got[link], visible)
		}
	}

	out, _ := rendered.Page.HTML()
	if !strings.Contains(out, filter.SelectedClass) {
		t.Errorf("toggled token not selected:\n%s", out)
	}
}

func TestRenderContent(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()
	store := visits.NewStore(database)

	r := newRenderer(t, testFS(), store)
	rendered, err := r.Render(context.Background(), Request{ID: "hello.md"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered.Title != "Hello - Blog" {
		t.Errorf("title = %q", rendered.Title)
	}
	out, _ := rendered.Page.HTML()
	for _, want := range []string{
		`<header class="page-header">`,
		`<p class="lead">`,
		`<i class="leancloud-visitors-count">1</i>`,
		`<nav class="toc">`,
		`<span class="line">`,
		`new Valine({"path":"hello.md"`,
		`id="vcomments"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("content page missing %s:\n%s", want, out)
		}
	}
	if strings.Index(out, "page-header") > strings.Index(out, `class="lead"`) {
		t.Error("lead paragraph must follow the header")
	}
}

func TestRenderContentFrontMatterTitle(t *testing.T) {
	r := newRenderer(t, testFS(), nil)
	rendered, err := r.Render(context.Background(), Request{ID: "notes.md"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered.Title != "Front Title - Blog" {
		t.Errorf("title = %q", rendered.Title)
	}
	out, _ := rendered.Page.HTML()
	if strings.Contains(out, "title: Front Title") {
		t.Errorf("front matter leaked into body:\n%s", out)
	}
}

func TestRenderUnknownID(t *testing.T) {
	r := newRenderer(t, testFS(), nil)
	_, err := r.Render(context.Background(), Request{ID: "missing.md"})
	if !errors.Is(err, manifest.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func newTestHandler(t *testing.T, fsys fstest.MapFS) http.Handler {
	t.Helper()
	h, err := NewHandler(newRenderer(t, fsys, nil), nil, "github", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}

func TestHandlerStatuses(t *testing.T) {
	broken := testFS()
	broken["list.json"] = &fstest.MapFile{Data: []byte(`{"a.md":`)}
	orphan := testFS()
	delete(orphan, "hello.md")

	tests := []struct {
		name   string
		fsys   fstest.MapFS
		target string
		status int
		want   string
	}{
		{"index", testFS(), "/", http.StatusOK, `class="marked-panel"`},
		{"content", testFS(), "/?p=hello.md", http.StatusOK, `<nav class="toc">`},
		{"pageid", testFS(), "/?pageid=notes.md", http.StatusOK, "some notes"},
		{"toggle", testFS(), "/?k=go", http.StatusOK, `class="keyword selected"`},
		{"unknown", testFS(), "/?p=nope.md", http.StatusNotFound, "Not found"},
		{"missing file", orphan, "/?p=hello.md", http.StatusNotFound, "Not found"},
		{"malformed manifest", broken, "/", http.StatusBadGateway, "Content unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestHandler(t, tt.fsys).ServeHTTP(w, httptest.NewRequest("GET", tt.target, nil))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d\n%s", w.Code, tt.status, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body missing %q:\n%s", tt.want, w.Body.String())
			}
		})
	}
}

type tokenState struct {
	href     string
	selected bool
}

func tokenStates(doc *goquery.Document) map[string]tokenState {
	out := map[string]tokenState{}
	doc.Find("a." + manifest.KeywordClass).Each(func(_ int, a *goquery.Selection) {
		kw, _ := a.Attr("data-keyword")
		href, _ := a.Attr("href")
		out[kw] = tokenState{href: href, selected: a.HasClass(filter.SelectedClass)}
	})
	return out
}

func visibleEntries(doc *goquery.Document) []string {
	var out []string
	doc.Find("." + document.PanelClass + " li").Not("." + filter.HiddenClass).Each(func(_ int, li *goquery.Selection) {
		href, _ := li.Find("a").First().Attr("href")
		out = append(out, href)
	})
	return out
}

func getPage(t *testing.T, h http.Handler, target string) *goquery.Document {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: status %d", target, w.Code)
	}
	doc, err := goquery.NewDocumentFromReader(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

// follow resolves a token href against the site root.
func follow(href string) string {
	return "/" + strings.TrimPrefix(href, "./")
}

func TestHandlerMultipleKeywords(t *testing.T) {
	doc := getPage(t, newTestHandler(t, testFS()), "/?k=web&k=misc")

	got := visibleEntries(doc)
	want := []string{"?p=hello.md", "?p=notes.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
	tokens := tokenStates(doc)
	if !tokens["web"].selected || !tokens["misc"].selected || tokens["go"].selected {
		t.Errorf("token states = %+v", tokens)
	}
}

func TestHandlerTokenLinksToggle(t *testing.T) {
	h := newTestHandler(t, testFS())
	all := []string{"?p=hello.md", "?p=notes.md", "https://example.com/"}

	doc := getPage(t, h, "/")
	if got := visibleEntries(doc); !reflect.DeepEqual(got, all) {
		t.Fatalf("index visible = %v", got)
	}

	// select misc
	doc = getPage(t, h, follow(tokenStates(doc)["misc"].href))
	if got := visibleEntries(doc); !reflect.DeepEqual(got, []string{"?p=notes.md"}) {
		t.Errorf("after misc: visible = %v", got)
	}

	// add go: both stay active
	doc = getPage(t, h, follow(tokenStates(doc)["go"].href))
	tokens := tokenStates(doc)
	if !tokens["misc"].selected || !tokens["go"].selected {
		t.Errorf("after go: tokens = %+v", tokens)
	}
	if got := visibleEntries(doc); !reflect.DeepEqual(got, all) {
		t.Errorf("after go: visible = %v", got)
	}

	// misc again removes it
	doc = getPage(t, h, follow(tokens["misc"].href))
	tokens = tokenStates(doc)
	if tokens["misc"].selected || !tokens["go"].selected {
		t.Errorf("after misc again: tokens = %+v", tokens)
	}
	if got := visibleEntries(doc); !reflect.DeepEqual(got, []string{"?p=hello.md", "https://example.com/"}) {
		t.Errorf("after misc again: visible = %v", got)
	}

	// go again returns to the unfiltered index
	if tokens["go"].href != "./" {
		t.Errorf("last active token links to %q, want ./", tokens["go"].href)
	}
	doc = getPage(t, h, follow(tokens["go"].href))
	if got := visibleEntries(doc); !reflect.DeepEqual(got, all) {
		t.Errorf("after go again: visible = %v", got)
	}
	for kw, st := range tokenStates(doc) {
		if st.selected {
			t.Errorf("%s still selected", kw)
		}
	}
}

func TestHandlerAssets(t *testing.T) {
	h := newTestHandler(t, testFS())
	for _, path := range []string{"/style.css", "/marked.css", "/assets/highlight.css"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
			t.Errorf("%s: content type %q", path, ct)
		}
	}
}

func TestFileNamesTarget(t *testing.T) {
	names := newFileNames([]string{"hello.md"}, []string{"go"})
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"?p=hello.md", "hello-md.html", true},
		{"?k=go", "tag-go.html", true},
		{"./?k=go", "tag-go.html", true},
		{"./", "index.html", true},
		{"#go", "", false},
		{"https://example.com/", "", false},
	}
	for _, tt := range tests {
		got, ok := names.target(tt.href)
		if got != tt.want || ok != tt.ok {
			t.Errorf("target(%q) = %q, %v; want %q, %v", tt.href, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFileNamesAreUnique(t *testing.T) {
	ids := []string{"a.md", "A.md", "a-md", "Index"}
	names := newFileNames(ids, []string{"go", "Go"})

	seen := map[string]string{}
	for _, id := range append(ids, manifest.IndexID) {
		name := names.page(id)
		if prev, ok := seen[name]; ok && prev != id {
			t.Errorf("%q and %q share %s", prev, id, name)
		}
		seen[name] = id
	}
	if names.page("a.md") != "a-md.html" || names.page("A.md") != "a-md-2.html" || names.page("a-md") != "a-md-3.html" {
		t.Errorf("unexpected names: %v", names.pages)
	}
	if names.page(manifest.IndexID) != "index.html" || names.page("Index") != "index-2.html" {
		t.Errorf("index name taken: %v", names.pages)
	}
	if names.tag("go") == names.tag("Go") {
		t.Errorf("tags share a file: %v", names.tags)
	}
}

func TestExport(t *testing.T) {
	out := t.TempDir()
	e := &Exporter{
		Renderer:       newRenderer(t, testFS(), nil),
		OutputDir:      out,
		Exclude:        []string{"notes*"},
		HighlightStyle: "github",
		Reporter:       progress.Nop{},
	}
	n, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	// index + tags go, web, misc + hello.md
	if n != 5 {
		t.Errorf("written = %d, want 5", n)
	}
	for _, name := range []string{"index.html", "tag-go.html", "tag-web.html", "tag-misc.html", "hello-md.html", "style.css", "marked.css", "assets/highlight.css"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(name))); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "notes-md.html")); err == nil {
		t.Error("excluded page was exported")
	}

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`href="hello-md.html"`, `href="tag-go.html"`, `href="style.css"`} {
		if !strings.Contains(string(index), want) {
			t.Errorf("index.html missing %s", want)
		}
	}

	for _, name := range []string{"index.html", "tag-go.html", "hello-md.html"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "builtin:") {
			t.Errorf("%s references an in-process resource", name)
		}
	}

	tag, err := os.Open(filepath.Join(out, "tag-go.html"))
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()
	doc, err := goquery.NewDocumentFromReader(tag)
	if err != nil {
		t.Fatal(err)
	}
	tokens := tokenStates(doc)
	if tokens["go"].href != "index.html" || !tokens["go"].selected {
		t.Errorf("active token = %+v, want selected link to index.html", tokens["go"])
	}
	if tokens["web"].href != "tag-web.html" {
		t.Errorf("inactive token = %+v, want link to tag-web.html", tokens["web"])
	}
}
