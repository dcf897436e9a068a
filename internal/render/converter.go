package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/ziadkadry99/markpage/internal/highlight"
)

// ConvertOptions are passed straight through to the Markdown converter.
type ConvertOptions struct {
	// Breaks turns single newlines into <br>.
	Breaks bool `koanf:"breaks" yaml:"breaks"`
	// Smartypants enables typographic punctuation.
	Smartypants bool `koanf:"smartypants" yaml:"smartypants"`
}

// Converter turns Markdown into HTML, highlighting code blocks line by line.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter builds a goldmark converter. Fenced blocks are highlighted by
// goldmark-highlighting, guessing the language when the tag is missing or
// unknown; indented blocks go through hl. Both emit the same markup.
func NewConverter(hl *highlight.Highlighter, opts ConvertOptions) *Converter {
	exts := []goldmark.Extender{
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithGuessLanguage(true),
			highlighting.WithFormatOptions(highlight.FormatOptions()...),
			highlighting.WithWrapperRenderer(func(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
				lang, _ := ctx.Language()
				writeCodeWrapper(w, string(lang), entering)
			}),
		),
	}
	if opts.Smartypants {
		exts = append(exts, extension.Typographer)
	}
	rendererOpts := []renderer.Option{
		gmhtml.WithUnsafe(),
		renderer.WithNodeRenderers(util.Prioritized(&indentedCodeRenderer{hl: hl}, 100)),
	}
	if opts.Breaks {
		rendererOpts = append(rendererOpts, gmhtml.WithHardWraps())
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Converter{md: md}
}

// Convert renders src to HTML.
func (c *Converter) Convert(src string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return buf.String(), nil
}

// FrontMatter is the optional YAML header of a content document.
type FrontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// StripFrontMatter splits a leading YAML front matter block from src. Content
// without front matter is returned unchanged.
func StripFrontMatter(src string) (FrontMatter, string, error) {
	var fm FrontMatter
	body, err := frontmatter.Parse(strings.NewReader(src), &fm)
	if err != nil {
		return FrontMatter{}, src, fmt.Errorf("parsing front matter: %w", err)
	}
	return fm, string(body), nil
}

// writeCodeWrapper opens or closes the pre/code pair around highlighted lines.
func writeCodeWrapper(w util.BufWriter, lang string, entering bool) {
	if !entering {
		w.WriteString("</code></pre>\n")
		return
	}
	lang = strings.ToLower(lang)
	fmt.Fprintf(w, `<pre class="chroma"><code class="language-%s" data-lang="%s">`,
		html.EscapeString(lang), html.EscapeString(lang))
}

// indentedCodeRenderer highlights indented code blocks, which carry no
// language tag, with a detected lexer.
type indentedCodeRenderer struct {
	hl *highlight.Highlighter
}

func (r *indentedCodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindCodeBlock, r.render)
}

func (r *indentedCodeRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var code bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	res, err := r.hl.Highlight(code.String(), "")
	if err != nil {
		return ast.WalkStop, err
	}
	writeCodeWrapper(w, res.Language, true)
	w.WriteString(res.HTML)
	writeCodeWrapper(w, res.Language, false)
	return ast.WalkSkipChildren, nil
}
