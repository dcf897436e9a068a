// Package site assembles complete blog pages: it fetches the manifest,
// chooses between the index listing and a content document, runs the render
// pipeline, and applies keyword filtering and widgets.
package site

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/fetch"
	"github.com/ziadkadry99/markpage/internal/filter"
	"github.com/ziadkadry99/markpage/internal/loader"
	"github.com/ziadkadry99/markpage/internal/logging"
	"github.com/ziadkadry99/markpage/internal/manifest"
	"github.com/ziadkadry99/markpage/internal/render"
	"github.com/ziadkadry99/markpage/internal/widget"
)

// Request selects a page. Toggles are applied to the index filter in order.
type Request struct {
	ID      string
	Toggles []string
}

// Rendered is a finished page.
type Rendered struct {
	ID       string
	Title    string
	Page     *document.Page
	Manifest *manifest.Manifest
	// Filter is set on index pages only.
	Filter *filter.Filter
}

// Options configure a Renderer.
type Options struct {
	SiteTitle    string
	ManifestPath string
	Fetcher      fetch.Fetcher
	Transport    loader.Transport
	Pipeline     *render.Pipeline
	Widgets      *widget.Bootstrapper
}

// Renderer builds pages. Each call owns a fresh page; nothing outlives it.
type Renderer struct {
	opts Options
	log  *zap.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(opts Options, log *zap.Logger) *Renderer {
	if opts.Transport == nil {
		opts.Transport = loader.NewMux(nil)
	}
	return &Renderer{opts: opts, log: logging.OrNop(log)}
}

// Manifest fetches and parses the manifest.
func (r *Renderer) Manifest(ctx context.Context) (*manifest.Manifest, error) {
	text, err := r.opts.Fetcher.Fetch(ctx, r.opts.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	return manifest.Parse([]byte(text))
}

// Render builds the page for req.
func (r *Renderer) Render(ctx context.Context, req Request) (*Rendered, error) {
	m, err := r.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	return r.RenderWith(ctx, m, req)
}

// RenderWith builds the page for req against an already fetched manifest.
func (r *Renderer) RenderWith(ctx context.Context, m *manifest.Manifest, req Request) (*Rendered, error) {
	id := req.ID
	if id == "" {
		id = manifest.IndexID
	}
	log := r.log.With(zap.String("render", uuid.NewString()), zap.String("page", id))

	if id == manifest.IndexID {
		return r.renderIndex(ctx, log, m, req.Toggles)
	}
	return r.renderContent(ctx, log, m, id)
}

func (r *Renderer) renderIndex(ctx context.Context, log *zap.Logger, m *manifest.Manifest, toggles []string) (*Rendered, error) {
	page, err := document.New(r.opts.SiteTitle)
	if err != nil {
		return nil, err
	}
	if err := page.SetPlaceholder(manifest.BuildIndex(m)); err != nil {
		return nil, err
	}

	job := render.Job{Page: page, Loader: loader.New(page, r.opts.Transport, log)}
	if err := r.opts.Pipeline.Run(ctx, job); err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}

	f := filter.New(page)
	for _, kw := range toggles {
		f.Toggle(kw)
	}
	log.Debug("Index rendered", zap.Int("entries", m.Len()), zap.Strings("active", f.Active()))

	return &Rendered{ID: manifest.IndexID, Title: r.opts.SiteTitle, Page: page, Manifest: m, Filter: f}, nil
}

func (r *Renderer) renderContent(ctx context.Context, log *zap.Logger, m *manifest.Manifest, id string) (*Rendered, error) {
	meta, err := m.Lookup(id)
	if err != nil {
		return nil, err
	}

	text, err := r.opts.Fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", id, err)
	}
	fm, body, err := render.StripFrontMatter(text)
	if err != nil {
		log.Warn("Ignoring front matter", zap.Error(err))
	}
	if meta.Title == "" {
		meta.Title = fm.Title
	}
	if meta.Title == "" {
		meta.Title = id
	}
	if meta.Description == "" {
		meta.Description = fm.Description
	}

	title := meta.Title
	if r.opts.SiteTitle != "" {
		title += " - " + r.opts.SiteTitle
	}
	page, err := document.New(title)
	if err != nil {
		return nil, err
	}
	if err := page.SetPlaceholder(body); err != nil {
		return nil, err
	}

	ld := loader.New(page, r.opts.Transport, log)
	job := render.Job{Page: page, Loader: ld}
	if r.opts.Widgets != nil {
		job.Widgets = func(ctx context.Context) error {
			return r.opts.Widgets.Attach(ctx, page, ld, id, meta)
		}
	}
	if err := r.opts.Pipeline.Run(ctx, job); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", id, err)
	}
	log.Debug("Content rendered")

	return &Rendered{ID: id, Title: title, Page: page, Manifest: m}, nil
}

// ErrorPage renders a minimal page for a failed request.
func ErrorPage(title, message string) (*document.Page, error) {
	page, err := document.New(title)
	if err != nil {
		return nil, err
	}
	page.RemoveLoading()
	if err := page.Swap(fmt.Sprintf("<h1>%s</h1>\n<p>%s</p>\n", html.EscapeString(title), html.EscapeString(message))); err != nil {
		return nil, err
	}
	return page, nil
}
