package site

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/filter"
	"github.com/ziadkadry99/markpage/internal/highlight"
	"github.com/ziadkadry99/markpage/internal/logging"
	"github.com/ziadkadry99/markpage/internal/manifest"
	"github.com/ziadkadry99/markpage/internal/progress"
)

// Exporter writes every page of the blog as static HTML.
type Exporter struct {
	Renderer       *Renderer
	OutputDir      string
	Include        []string
	Exclude        []string
	HighlightStyle string
	Reporter       progress.Reporter
	Log            *zap.Logger
}

// PageFile returns the exported file name of a content identifier.
func PageFile(id string) string {
	if id == manifest.IndexID {
		return "index.html"
	}
	name := slug.Make(id)
	if name == "" {
		name = "page"
	}
	return name + ".html"
}

// KeywordFile returns the exported file name of the index filtered by kw.
func KeywordFile(kw string) string {
	name := slug.Make(kw)
	if name == "" {
		name = url.PathEscape(kw)
	}
	return "tag-" + name + ".html"
}

// fileNames assigns every exported page and tag index a distinct file name.
// Identifiers whose slugs clash get a numeric suffix in manifest order.
type fileNames struct {
	used  map[string]bool
	pages map[string]string
	tags  map[string]string
}

func newFileNames(ids, keywords []string) *fileNames {
	n := &fileNames{
		used:  map[string]bool{PageFile(manifest.IndexID): true},
		pages: map[string]string{manifest.IndexID: PageFile(manifest.IndexID)},
		tags:  map[string]string{},
	}
	for _, id := range ids {
		n.pages[id] = n.claim(PageFile(id))
	}
	for _, kw := range keywords {
		n.tags[kw] = n.claim(KeywordFile(kw))
	}
	return n
}

func (n *fileNames) claim(name string) string {
	base := strings.TrimSuffix(name, ".html")
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s-%d.html", base, i)
	}
	n.used[name] = true
	return name
}

func (n *fileNames) page(id string) string {
	if name, ok := n.pages[id]; ok {
		return name
	}
	return PageFile(id)
}

func (n *fileNames) tag(kw string) string {
	if name, ok := n.tags[kw]; ok {
		return name
	}
	return KeywordFile(kw)
}

// Selected reports whether id passes the include and exclude globs.
func (e *Exporter) Selected(id string) bool {
	if len(e.Include) > 0 && !matchesAny(id, e.Include) {
		return false
	}
	return !matchesAny(id, e.Exclude)
}

func matchesAny(id string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, id); err == nil && matched {
			return true
		}
	}
	return false
}

// Export renders the index, one filtered index per keyword, and every
// selected content page. It returns the number of files written.
func (e *Exporter) Export(ctx context.Context) (int, error) {
	m, err := e.Renderer.Manifest(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output dir: %w", err)
	}
	if err := e.writeAssets(); err != nil {
		return 0, err
	}

	var ids []string
	for _, entry := range m.Entries() {
		if entry.Href == "" && entry.ID != manifest.IndexID && e.Selected(entry.ID) {
			ids = append(ids, entry.ID)
		}
	}
	keywords := m.Keywords()
	names := newFileNames(ids, keywords)

	reporter := e.Reporter
	if reporter == nil {
		reporter = progress.NewReporter()
	}
	log := logging.OrNop(e.Log)
	log.Debug("Exporting", zap.Int("pages", len(ids)), zap.Int("keywords", len(keywords)), zap.String("out", e.OutputDir))

	total := 1 + len(keywords) + len(ids)
	reporter.Start(total)
	defer reporter.Finish()

	written := 0
	write := func(name string, page *document.Page) error {
		names.rewriteLinks(page)
		out, err := page.HTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(e.OutputDir, name), []byte(out), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		written++
		reporter.Update(written, name)
		log.Debug("Wrote page", zap.String("file", name))
		return nil
	}

	index, err := e.Renderer.RenderWith(ctx, m, Request{})
	if err != nil {
		return written, err
	}
	if err := write(names.page(manifest.IndexID), index.Page); err != nil {
		return written, err
	}

	for _, kw := range keywords {
		filtered, err := e.Renderer.RenderWith(ctx, m, Request{Toggles: []string{kw}})
		if err != nil {
			return written, err
		}
		if err := write(names.tag(kw), filtered.Page); err != nil {
			return written, err
		}
	}

	for _, id := range ids {
		rendered, err := e.Renderer.RenderWith(ctx, m, Request{ID: id})
		if err != nil {
			return written, fmt.Errorf("exporting %s: %w", id, err)
		}
		if err := write(names.page(id), rendered.Page); err != nil {
			return written, err
		}
	}
	return written, nil
}

func (e *Exporter) writeAssets() error {
	css, err := highlight.Stylesheet(e.HighlightStyle)
	if err != nil {
		return err
	}
	assets := map[string]string{
		"style.css":  styleCSS,
		"marked.css": markedCSS,
		strings.TrimPrefix(highlight.StylesheetPath, "/"): css,
	}
	for name, content := range assets {
		path := filepath.Join(e.OutputDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// rewriteLinks points query links at exported files and makes root-relative
// asset references relative, so the export works from any directory. A static
// index has one active keyword at most: an active token leads back to the
// full index, any other token to its own tag page.
func (n *fileNames) rewriteLinks(page *document.Page) {
	page.Do(func(doc *goquery.Document) {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if kw, ok := a.Attr("data-keyword"); ok && a.HasClass(manifest.KeywordClass) {
				if a.HasClass(filter.SelectedClass) {
					a.SetAttr("href", n.page(manifest.IndexID))
				} else {
					a.SetAttr("href", n.tag(kw))
				}
				return
			}
			href, _ := a.Attr("href")
			if target, ok := n.target(href); ok {
				a.SetAttr("href", target)
			}
		})
		doc.Find(`link[href^="/"]`).Each(func(_ int, l *goquery.Selection) {
			href, _ := l.Attr("href")
			l.SetAttr("href", strings.TrimPrefix(href, "/"))
		})
	})
}

func (n *fileNames) target(href string) (string, bool) {
	rest, ok := strings.CutPrefix(href, "./")
	if !ok {
		rest = href
	}
	if rest == "" && ok {
		return n.page(manifest.IndexID), true
	}
	if !strings.HasPrefix(rest, "?") {
		return "", false
	}
	q, err := url.ParseQuery(rest[1:])
	if err != nil {
		return "", false
	}
	if kw := q.Get("k"); kw != "" {
		return n.tag(kw), true
	}
	return n.page(manifest.Identity(rest)), true
}
