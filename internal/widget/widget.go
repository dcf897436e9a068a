// Package widget decorates content pages once their Markdown is rendered: a
// navigation header, a lead paragraph, a comment panel and the comment widget
// bootstrap.
package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/loader"
	"github.com/ziadkadry99/markpage/internal/logging"
	"github.com/ziadkadry99/markpage/internal/manifest"
)

// DefaultElement is the selector of the comment container.
const DefaultElement = "#vcomments"

// CommentConfig holds the comment widget settings. The credentials are opaque
// and passed through untouched.
type CommentConfig struct {
	LibraryURL  string `koanf:"library_url" yaml:"library_url"`
	Element     string `koanf:"element" yaml:"element"`
	AppID       string `koanf:"app_id" yaml:"app_id"`
	AppKey      string `koanf:"app_key" yaml:"app_key"`
	Placeholder string `koanf:"placeholder" yaml:"placeholder"`
	Region      string `koanf:"region" yaml:"region"`
}

// WidgetConfig is the object handed to the comment widget constructor.
type WidgetConfig struct {
	Path        string `json:"path"`
	El          string `json:"el"`
	AppID       string `json:"appId"`
	AppKey      string `json:"appKey"`
	Placeholder string `json:"placeholder"`
	Verify      bool   `json:"verify"`
	Visitor     bool   `json:"visitor"`
	Region      string `json:"region,omitempty"`
}

// Counter reports the visit count of a page.
type Counter interface {
	Hit(ctx context.Context, pageID string) (int64, error)
}

// Options configure a Bootstrapper.
type Options struct {
	SiteTitle    string
	HomeURL      string
	AnalyticsURL string
	Comments     CommentConfig
	Counter      Counter
}

// Bootstrapper attaches widgets to content pages.
type Bootstrapper struct {
	opts Options
	log  *zap.Logger
}

// New creates a Bootstrapper.
func New(opts Options, log *zap.Logger) *Bootstrapper {
	if opts.Comments.Element == "" {
		opts.Comments.Element = DefaultElement
	}
	if opts.HomeURL == "" {
		opts.HomeURL = "./"
	}
	return &Bootstrapper{opts: opts, log: logging.OrNop(log)}
}

// WidgetConfig returns the comment widget configuration for a page identity.
func (b *Bootstrapper) WidgetConfig(pageID string) WidgetConfig {
	c := b.opts.Comments
	return WidgetConfig{
		Path:        pageID,
		El:          c.Element,
		AppID:       c.AppID,
		AppKey:      c.AppKey,
		Placeholder: c.Placeholder,
		Verify:      true,
		Visitor:     true,
		Region:      c.Region,
	}
}

// Attach builds the header, lead paragraph and comment panel for the content
// page pageID, then loads the comment library and constructs the widget.
// Without a library URL the panel is left empty.
func (b *Bootstrapper) Attach(ctx context.Context, page *document.Page, ld *loader.Loader, pageID string, meta manifest.Metadata) error {
	var visits string
	if b.opts.Counter != nil {
		n, err := b.opts.Counter.Hit(ctx, pageID)
		if err != nil {
			b.log.Warn("Visit counter unavailable", zap.String("page", pageID), zap.Error(err))
		} else {
			visits = fmt.Sprint(n)
		}
	}

	header := b.header(meta)
	lead := b.lead(pageID, meta, visits)
	panelID := strings.TrimPrefix(b.opts.Comments.Element, "#")

	page.Do(func(doc *goquery.Document) {
		body := doc.Find("body")
		body.PrependHtml(header)
		doc.Find("header.page-header").First().AfterHtml(lead)
		body.AppendHtml(`<div id="` + html.EscapeString(panelID) + `" class="comment-panel"></div>`)
	})

	if b.opts.AnalyticsURL != "" {
		ld.Load(ctx, b.opts.AnalyticsURL, true, nil)
	}

	if b.opts.Comments.LibraryURL == "" {
		return nil
	}
	cfg, err := json.Marshal(b.WidgetConfig(pageID))
	if err != nil {
		return fmt.Errorf("encoding widget config: %w", err)
	}
	res := ld.Load(ctx, b.opts.Comments.LibraryURL, true, func() {
		page.Do(func(doc *goquery.Document) {
			doc.Find("body").AppendHtml(`<script>new Valine(` + string(cfg) + `);</script>`)
		})
	})
	if err := res.Wait(ctx); err != nil {
		return fmt.Errorf("loading comment widget: %w", err)
	}
	b.log.Debug("Comment widget attached", zap.String("page", pageID))
	return nil
}

func (b *Bootstrapper) header(meta manifest.Metadata) string {
	return fmt.Sprintf(`<header class="page-header"><a class="home" href="%s">%s</a> <span class="sep">/</span> <span class="title">%s</span></header>`,
		html.EscapeString(b.opts.HomeURL), html.EscapeString(b.opts.SiteTitle), html.EscapeString(meta.Title))
}

func (b *Bootstrapper) lead(pageID string, meta manifest.Metadata, visits string) string {
	source := meta.Href
	if source == "" {
		source = pageID
	}

	var sb strings.Builder
	sb.WriteString(`<p class="lead">`)
	fmt.Fprintf(&sb, `<a class="source" href="%s">source</a>`, html.EscapeString(source))
	if meta.ModifyDate != "" {
		fmt.Fprintf(&sb, ` <time>%s</time>`, html.EscapeString(meta.ModifyDate))
	}
	fmt.Fprintf(&sb, ` <span class="leancloud-visitors" id="%s" data-flag-title="%s"><i class="leancloud-visitors-count">%s</i></span>`,
		html.EscapeString(pageID), html.EscapeString(meta.Title), visits)
	if kws := meta.KeywordList(); len(kws) > 0 {
		sb.WriteString(` <span class="tags">`)
		for i, kw := range kws {
			if i > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, `<a class="tag" href="%s?k=%s">#%s</a>`,
				html.EscapeString(b.opts.HomeURL), html.EscapeString(url.QueryEscape(kw)), html.EscapeString(kw))
		}
		sb.WriteString(`</span>`)
	}
	if meta.Description != "" {
		fmt.Fprintf(&sb, ` <span class="description">%s</span>`, html.EscapeString(meta.Description))
	}
	sb.WriteString(`</p>`)
	return sb.String()
}
