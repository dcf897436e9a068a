// Package document holds the page being assembled: a parsed HTML tree with a
// head, a Markdown placeholder that is swapped for rendered HTML, and a
// transient loading node.
//
// Loaders, the render pipeline and widgets mutate the page from different
// goroutines, so every access goes through the page lock.
package document

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

const (
	// PlaceholderID is the id of the node that carries raw Markdown until swap.
	PlaceholderID = "md"
	// LoadingID is the id of the transient loading indicator.
	LoadingID = "loading"
	// PanelClass is the class of the node holding the rendered HTML.
	PanelClass = "marked-panel"
)

// ErrNoPlaceholder is returned when the page has already been swapped.
var ErrNoPlaceholder = errors.New("document: placeholder not found")

const skeleton = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body>
<div id="` + LoadingID + `" class="loading">Loading…</div>
<pre id="` + PlaceholderID + `"></pre>
</body>
</html>`

// Page is one rendered page. Exactly one render target exists per page.
type Page struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// New builds an empty page with the given title.
func New(title string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fmt.Sprintf(skeleton, html.EscapeString(title))))
	if err != nil {
		return nil, fmt.Errorf("parsing page skeleton: %w", err)
	}
	return &Page{doc: doc}, nil
}

// Do runs fn with exclusive access to the underlying document.
func (p *Page) Do(fn func(doc *goquery.Document)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
}

// Title returns the page title.
func (p *Page) Title() string {
	var title string
	p.Do(func(doc *goquery.Document) {
		title = doc.Find("head title").Text()
	})
	return title
}

// AppendHead appends raw HTML to the document head.
func (p *Page) AppendHead(fragment string) {
	p.Do(func(doc *goquery.Document) {
		doc.Find("head").AppendHtml(fragment)
	})
}

// SetPlaceholder stores raw Markdown text in the placeholder node.
func (p *Page) SetPlaceholder(text string) error {
	var err error
	p.Do(func(doc *goquery.Document) {
		sel := doc.Find("#" + PlaceholderID)
		if sel.Length() == 0 {
			err = ErrNoPlaceholder
			return
		}
		sel.SetText(text)
	})
	return err
}

// Placeholder returns the raw text held by the placeholder node.
func (p *Page) Placeholder() (string, error) {
	var (
		text string
		err  error
	)
	p.Do(func(doc *goquery.Document) {
		sel := doc.Find("#" + PlaceholderID)
		if sel.Length() == 0 {
			err = ErrNoPlaceholder
			return
		}
		text = sel.Text()
	})
	return text, err
}

// Swap replaces the placeholder wholesale with a panel holding rendered.
func (p *Page) Swap(rendered string) error {
	var err error
	p.Do(func(doc *goquery.Document) {
		sel := doc.Find("#" + PlaceholderID)
		if sel.Length() == 0 {
			err = ErrNoPlaceholder
			return
		}
		sel.ReplaceWithHtml(`<div class="` + PanelClass + `">` + rendered + `</div>`)
	})
	return err
}

// Panel returns the inner HTML of the rendered panel, or "" before swap.
func (p *Page) Panel() string {
	var out string
	p.Do(func(doc *goquery.Document) {
		out, _ = doc.Find("." + PanelClass).First().Html()
	})
	return out
}

// RemoveLoading drops the loading indicator. Calling it twice is harmless.
func (p *Page) RemoveLoading() {
	p.Do(func(doc *goquery.Document) {
		doc.Find("#" + LoadingID).Remove()
	})
}

// HTML serialises the whole page.
func (p *Page) HTML() (string, error) {
	var (
		out string
		err error
	)
	p.Do(func(doc *goquery.Document) {
		out, err = doc.Html()
	})
	if err != nil {
		return "", fmt.Errorf("serialising page: %w", err)
	}
	return out, nil
}
