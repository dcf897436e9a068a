// Package render turns a page's Markdown placeholder into rendered HTML. The
// pipeline loads the highlighter, then the converter, converts, swaps the
// result into the page and fires post-render hooks, strictly in that order.
package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/highlight"
	"github.com/ziadkadry99/markpage/internal/loader"
	"github.com/ziadkadry99/markpage/internal/logging"
)

// Stage is a pipeline state. Stages only ever advance.
type Stage int

const (
	StageStart Stage = iota
	StageHighlighterLoaded
	StageConverterLoaded
	StageConverted
	StageSwapped
	StageHooksFired
	StageWidgetsAttached
)

var stageNames = [...]string{
	StageStart:             "start",
	StageHighlighterLoaded: "highlighter-loaded",
	StageConverterLoaded:   "converter-loaded",
	StageConverted:         "converted",
	StageSwapped:           "swapped",
	StageHooksFired:        "hooks-fired",
	StageWidgetsAttached:   "widgets-attached",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Hook runs after the rendered HTML is in the page.
type Hook func(ctx context.Context, page *document.Page) error

// Options configure a Pipeline.
type Options struct {
	HighlighterURL string
	ConverterURL   string
	// Styles are loaded fire-and-forget before the highlighter.
	Styles  []string
	Convert ConvertOptions
	// LoadingGrace is the minimum time the loading node stays visible,
	// measured from pipeline start.
	LoadingGrace time.Duration
	Hooks        []Hook
	// OnStage observes every stage transition.
	OnStage func(Stage)
}

// Job is one page render.
type Job struct {
	Page   *document.Page
	Loader *loader.Loader
	// Widgets runs last, on content pages only. Nil for the index.
	Widgets func(ctx context.Context) error
}

// Pipeline renders pages. It is safe for concurrent use; each Job owns its page.
type Pipeline struct {
	opts Options
	log  *zap.Logger

	hlOnce   sync.Once
	hl       *highlight.Highlighter
	convOnce sync.Once
	conv     *Converter
}

// New creates a Pipeline.
func New(opts Options, log *zap.Logger) *Pipeline {
	return &Pipeline{opts: opts, log: logging.OrNop(log)}
}

func (p *Pipeline) highlighter() *highlight.Highlighter {
	p.hlOnce.Do(func() { p.hl = highlight.New() })
	return p.hl
}

func (p *Pipeline) converter() *Converter {
	p.convOnce.Do(func() { p.conv = NewConverter(p.highlighter(), p.opts.Convert) })
	return p.conv
}

func (p *Pipeline) advance(s Stage) {
	p.log.Debug("Render stage", zap.Stringer("stage", s))
	if p.opts.OnStage != nil {
		p.opts.OnStage(s)
	}
}

// Run renders the Markdown held in the job's placeholder. Each stage starts
// only after the previous one signalled completion; a resource that never
// becomes ready stalls the run until ctx ends.
func (p *Pipeline) Run(ctx context.Context, job Job) error {
	start := time.Now()
	p.advance(StageStart)

	for _, style := range p.opts.Styles {
		job.Loader.LoadStyle(style)
	}

	hlRes := job.Loader.Load(ctx, p.opts.HighlighterURL, true, nil)
	if err := hlRes.Wait(ctx); err != nil {
		return fmt.Errorf("loading highlighter: %w", err)
	}
	p.highlighter()
	p.advance(StageHighlighterLoaded)

	convRes := job.Loader.Load(ctx, p.opts.ConverterURL, false, nil)
	if err := convRes.Wait(ctx); err != nil {
		return fmt.Errorf("loading converter: %w", err)
	}
	conv := p.converter()
	p.advance(StageConverterLoaded)

	src, err := job.Page.Placeholder()
	if err != nil {
		return err
	}
	rendered, err := conv.Convert(src)
	if err != nil {
		return err
	}
	p.advance(StageConverted)

	if err := job.Page.Swap(rendered); err != nil {
		return err
	}
	p.advance(StageSwapped)

	var hookErr error
	for _, hook := range p.opts.Hooks {
		hookErr = multierr.Append(hookErr, hook(ctx, job.Page))
	}
	if hookErr != nil {
		p.log.Warn("Post-render hooks failed", zap.Error(hookErr))
	}
	p.advance(StageHooksFired)

	loadingGone := p.teardownLoading(job.Page, start)

	if job.Widgets != nil {
		if err := job.Widgets(ctx); err != nil {
			return fmt.Errorf("attaching widgets: %w", err)
		}
		p.advance(StageWidgetsAttached)
	}

	select {
	case <-loadingGone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// teardownLoading removes the loading node once it has been visible for the
// configured grace period.
func (p *Pipeline) teardownLoading(page *document.Page, start time.Time) <-chan struct{} {
	done := make(chan struct{})
	remaining := p.opts.LoadingGrace - time.Since(start)
	if remaining <= 0 {
		page.RemoveLoading()
		close(done)
		return done
	}
	time.AfterFunc(remaining, func() {
		page.RemoveLoading()
		close(done)
	})
	return done
}
