package manifest

import (
	"html"
	"net/url"
	"strings"
)

const (
	indexHeading = "# Index\n\nSelect one or more keywords to narrow the list; select a keyword again to clear it.\n"
	fileHeading  = "## Files\n"
)

// KeywordClass is the class of the interactive keyword tokens in the index.
const KeywordClass = "keyword"

// KeywordToken renders the clickable token for kw.
func KeywordToken(kw string) string {
	esc := html.EscapeString(kw)
	return `<a class="` + KeywordClass + `" data-keyword="` + esc + `" href="?k=` + html.EscapeString(url.QueryEscape(kw)) + `">` + esc + `</a>`
}

// KeywordFragment is the link fragment that tags an entry with kw.
func KeywordFragment(kw string) string {
	return "#" + url.PathEscape(kw)
}

// EntryLink returns the link target of an entry: its href when set, else a
// query reference to its identifier.
func EntryLink(e Entry) string {
	if e.Href != "" {
		return e.Href
	}
	return "?p=" + url.QueryEscape(e.ID)
}

// BuildIndex synthesises the Markdown body of the index listing. Output is a
// pure function of the manifest: entries follow manifest order and keyword
// tokens follow first-seen order.
func BuildIndex(m *Manifest) string {
	var b strings.Builder
	b.WriteString(indexHeading)
	b.WriteString("\n")

	keywords := m.Keywords()
	if len(keywords) > 0 {
		tokens := make([]string, len(keywords))
		for i, kw := range keywords {
			tokens[i] = KeywordToken(kw)
		}
		b.WriteString(strings.Join(tokens, " "))
		b.WriteString("\n\n")
	}

	b.WriteString(fileHeading)
	b.WriteString("\n")
	for _, e := range m.Entries() {
		b.WriteString(entryLine(e))
		b.WriteString("\n")
	}
	return b.String()
}

func entryLine(e Entry) string {
	var b strings.Builder
	b.WriteString("- ")
	if e.ModifyDate != "" {
		b.WriteString(escapeMarkdown(e.ModifyDate))
		b.WriteString(" ")
	}
	title := e.Title
	if title == "" {
		title = e.ID
	}
	b.WriteString("[")
	b.WriteString(escapeMarkdown(title))
	b.WriteString("](<")
	b.WriteString(EntryLink(e))
	b.WriteString(">)")
	for _, kw := range e.KeywordList() {
		b.WriteString(" [#")
		b.WriteString(escapeMarkdown(kw))
		b.WriteString("](")
		b.WriteString(KeywordFragment(kw))
		b.WriteString(")")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"[", `\[`,
	"]", `\]`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"<", `\<`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
