// Package highlight renders source code into classed HTML with chroma, one
// line span per source line.
package highlight

import (
	"bytes"
	"fmt"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	// LineClass is the class chroma puts on every highlighted line.
	LineClass = "line"
	// StylesheetPath is where the stylesheet from Stylesheet is served.
	StylesheetPath = "/assets/highlight.css"
)

// Result is a highlighted block.
type Result struct {
	// Language is the lexer that was used, explicit or detected.
	Language string
	// Detected is true when the language came from auto-detection.
	Detected bool
	// HTML holds the line spans, without a surrounding pre element.
	HTML string
}

// bareWrapper suppresses chroma's <pre><code> so callers can write their own
// with language attributes. Line spans are still emitted.
type bareWrapper struct{}

func (bareWrapper) Start(bool, string) string { return "" }
func (bareWrapper) End(bool) string           { return "" }

// FormatOptions are the chroma HTML formatter options shared by every code
// block: CSS classes instead of inline styles, and no surrounding pre.
func FormatOptions() []chromahtml.Option {
	return []chromahtml.Option{
		chromahtml.WithClasses(true),
		chromahtml.WithPreWrapper(bareWrapper{}),
	}
}

// Highlighter tokenises and formats code with chroma.
type Highlighter struct {
	formatter *chromahtml.Formatter
}

// New returns a Highlighter.
func New() *Highlighter {
	return &Highlighter{formatter: chromahtml.New(FormatOptions()...)}
}

// Lexer selects the lexer for code. A known lang wins; otherwise the
// language is detected from the code, falling back to plain text.
func Lexer(code, lang string) (lexer chroma.Lexer, detected bool) {
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
		detected = true
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer), detected
}

// Highlight renders code as chroma line spans.
func (h *Highlighter) Highlight(code, lang string) (Result, error) {
	lexer, detected := Lexer(code, lang)
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return Result{}, fmt.Errorf("tokenising %s: %w", lexer.Config().Name, err)
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, styles.Fallback, it); err != nil {
		return Result{}, fmt.Errorf("formatting %s: %w", lexer.Config().Name, err)
	}
	return Result{
		Language: lexer.Config().Name,
		Detected: detected,
		HTML:     buf.String(),
	}, nil
}

// Stylesheet renders the CSS for the classes emitted by Highlight.
func Stylesheet(style string) (string, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(FormatOptions()...)
	if err := formatter.WriteCSS(&buf, styles.Get(style)); err != nil {
		return "", fmt.Errorf("writing %s stylesheet: %w", style, err)
	}
	buf.WriteString("pre code .line { counter-increment: line; }\n")
	buf.WriteString("pre code .line::before { content: counter(line); display: inline-block; width: 2.5em; margin-right: 1em; text-align: right; color: #999; }\n")
	buf.WriteString("pre code { counter-reset: line; }\n")
	return buf.String(), nil
}
