package render

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gosimple/slug"

	"github.com/ziadkadry99/markpage/internal/document"
)

// NavClass is the class of the table of contents built by NavHook.
const NavClass = "toc"

// NavHook initialises page navigation: every h2/h3 in the rendered panel gets
// an id, and a table of contents linking them is placed at the top of the
// panel. Pages with fewer than two such headings get no table.
func NavHook(ctx context.Context, page *document.Page) error {
	var err error
	page.Do(func(doc *goquery.Document) {
		panel := doc.Find("." + document.PanelClass).First()
		if panel.Length() == 0 {
			err = fmt.Errorf("navigation: %w", document.ErrNoPlaceholder)
			return
		}
		headings := panel.Find("h2, h3")
		if headings.Length() < 2 {
			return
		}

		used := make(map[string]bool)
		var b strings.Builder
		b.WriteString(`<nav class="` + NavClass + `"><ul>`)
		headings.Each(func(i int, h *goquery.Selection) {
			text := strings.TrimSpace(h.Text())
			id, ok := h.Attr("id")
			if !ok || id == "" {
				id = slug.Make(text)
				if id == "" {
					id = fmt.Sprintf("section-%d", i+1)
				}
				for base, n := id, 2; used[id]; n++ {
					id = fmt.Sprintf("%s-%d", base, n)
				}
				h.SetAttr("id", id)
			}
			used[id] = true
			fmt.Fprintf(&b, `<li class="%s"><a href="#%s">%s</a></li>`,
				goquery.NodeName(h), html.EscapeString(id), html.EscapeString(text))
		})
		b.WriteString(`</ul></nav>`)
		panel.PrependHtml(b.String())
	})
	return err
}
