// Package filter narrows the index listing by keyword. Visibility is
// re-derived from the active set on every toggle, never patched incrementally.
package filter

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/manifest"
)

const (
	// HiddenClass marks listing entries that are filtered out.
	HiddenClass = "hide"
	// SelectedClass marks active keyword tokens.
	SelectedClass = "selected"
)

// ActiveSet is the set of keywords the reader selected.
type ActiveSet map[string]struct{}

// Has reports membership.
func (s ActiveSet) Has(kw string) bool {
	_, ok := s[kw]
	return ok
}

// Toggle flips kw and reports whether it is active afterwards.
func (s ActiveSet) Toggle(kw string) bool {
	if s.Has(kw) {
		delete(s, kw)
		return false
	}
	s[kw] = struct{}{}
	return true
}

// Keywords returns the members in sorted order.
func (s ActiveSet) Keywords() []string {
	out := make([]string, 0, len(s))
	for kw := range s {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// Visible reports whether an entry tagged with keywords is shown: always when
// nothing is active, else when any of its keywords is active.
func Visible(keywords []string, active ActiveSet) bool {
	if len(active) == 0 {
		return true
	}
	for _, kw := range keywords {
		if active.Has(kw) {
			return true
		}
	}
	return false
}

// ToggleLink returns the index query that flips kw against active: the active
// set without kw when it is a member, else with it. An empty result links
// back to the unfiltered index.
func ToggleLink(active ActiveSet, kw string) string {
	next := make(ActiveSet, len(active)+1)
	for k := range active {
		next[k] = struct{}{}
	}
	next.Toggle(kw)
	if len(next) == 0 {
		return "./"
	}
	return "?" + url.Values{"k": next.Keywords()}.Encode()
}

// EntryState is the visibility of one listing entry.
type EntryState struct {
	Link     string
	Keywords []string
	Visible  bool
}

// Filter applies an ActiveSet to the listing of a rendered index page.
type Filter struct {
	page   *document.Page
	active ActiveSet
}

// New binds a filter with an empty active set to page.
func New(page *document.Page) *Filter {
	return &Filter{page: page, active: ActiveSet{}}
}

// Active returns the active keywords in sorted order.
func (f *Filter) Active() []string { return f.active.Keywords() }

// Toggle flips kw, reflects it on the keyword token, and recomputes the
// visibility of every entry. Every token is relinked to the query that
// toggles it against the new active set. It reports whether kw is active
// afterwards.
func (f *Filter) Toggle(kw string) bool {
	on := f.active.Toggle(kw)
	f.page.Do(func(doc *goquery.Document) {
		tokens(doc).Each(func(_ int, s *goquery.Selection) {
			v, _ := s.Attr("data-keyword")
			if v == kw {
				if on {
					s.AddClass(SelectedClass)
				} else {
					s.RemoveClass(SelectedClass)
				}
			}
			s.SetAttr("href", ToggleLink(f.active, v))
		})
		f.apply(doc)
	})
	return on
}

func (f *Filter) apply(doc *goquery.Document) {
	items := entries(doc)
	if len(f.active) == 0 {
		items.RemoveClass(HiddenClass)
		return
	}
	items.AddClass(HiddenClass)
	items.Each(func(_ int, s *goquery.Selection) {
		if Visible(entryKeywords(s), f.active) {
			s.RemoveClass(HiddenClass)
		}
	})
}

// Visibility reports the current state of every listing entry.
func (f *Filter) Visibility() []EntryState {
	var out []EntryState
	f.page.Do(func(doc *goquery.Document) {
		entries(doc).Each(func(_ int, s *goquery.Selection) {
			link, _ := s.Find("a").Not(`a[href^="#"]`).First().Attr("href")
			out = append(out, EntryState{
				Link:     link,
				Keywords: entryKeywords(s),
				Visible:  !s.HasClass(HiddenClass),
			})
		})
	})
	return out
}

func tokens(doc *goquery.Document) *goquery.Selection {
	return doc.Find("." + document.PanelClass + " a." + manifest.KeywordClass)
}

func entries(doc *goquery.Document) *goquery.Selection {
	return doc.Find("." + document.PanelClass + " li")
}

// entryKeywords collects the keywords carried by an entry's fragment links.
func entryKeywords(s *goquery.Selection) []string {
	var out []string
	s.Find(`a[href^="#"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		kw, err := url.PathUnescape(strings.TrimPrefix(href, "#"))
		if err == nil && kw != "" {
			out = append(out, kw)
		}
	})
	return out
}
