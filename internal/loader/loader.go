// Package loader injects script and style resources into a page and reports
// when each script is ready.
package loader

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/logging"
)

// ReadyState mirrors the ready states a script node passes through.
type ReadyState string

const (
	StateLoading     ReadyState = "loading"
	StateInteractive ReadyState = "interactive"
	StateLoaded      ReadyState = "loaded"
	StateComplete    ReadyState = "complete"
)

// Terminal reports whether s ends loading.
func (s ReadyState) Terminal() bool {
	return s == StateLoaded || s == StateComplete
}

// Transport opens a resource and reports its ready-state transitions through
// notify. A transport may report terminal states more than once and may never
// report one at all.
type Transport interface {
	Open(ctx context.Context, url string, notify func(ReadyState))
}

// Resource is one requested script load.
type Resource struct {
	URL   string
	Async bool

	mu      sync.Mutex
	onReady func()
	handler func(ReadyState)
	done    chan struct{}
}

// Done is closed once the resource became ready and onReady returned.
func (r *Resource) Done() <-chan struct{} { return r.done }

// Wait blocks until the resource is ready or ctx ends.
func (r *Resource) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w", r.URL, ctx.Err())
	}
}

// notify is handed to the transport. After the first terminal state the
// handler is detached, so later events are dropped.
func (r *Resource) notify(state ReadyState) {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()
	if h != nil {
		h(state)
	}
}

func (r *Resource) handle(state ReadyState) {
	if !state.Terminal() {
		return
	}
	r.mu.Lock()
	if r.handler == nil {
		r.mu.Unlock()
		return
	}
	r.handler = nil
	cb := r.onReady
	r.onReady = nil
	r.mu.Unlock()

	if cb != nil {
		cb()
	}
	close(r.done)
}

// Loader injects resources into a single page.
type Loader struct {
	page      *document.Page
	transport Transport
	log       *zap.Logger

	mu   sync.Mutex
	tail <-chan struct{}
}

// New creates a Loader for page.
func New(page *document.Page, transport Transport, log *zap.Logger) *Loader {
	return &Loader{page: page, transport: transport, log: logging.OrNop(log)}
}

// Load appends a script node for url to the head and opens it. builtin:
// resources are opened without a script node. onReady fires
// at most once, when the script reaches a terminal ready state. Sequential
// (non-async) scripts open in insertion order, each after the previous
// sequential script is ready; async scripts open immediately.
func (l *Loader) Load(ctx context.Context, url string, async bool, onReady func()) *Resource {
	r := &Resource{
		URL:     url,
		Async:   async,
		onReady: onReady,
		done:    make(chan struct{}),
	}
	r.handler = r.handle

	// In-process resources have nothing for a browser to fetch.
	if !strings.HasPrefix(url, BuiltinScheme) {
		attr := ""
		if async {
			attr = " async"
		}
		l.page.AppendHead(fmt.Sprintf(`<script src="%s"%s></script>`, html.EscapeString(url), attr))
	}

	var prev <-chan struct{}
	if !async {
		l.mu.Lock()
		prev = l.tail
		l.tail = r.done
		l.mu.Unlock()
	}

	go func() {
		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
				return
			}
		}
		l.log.Debug("Opening resource", zap.String("url", url), zap.Bool("async", async))
		l.transport.Open(ctx, url, r.notify)
	}()

	return r
}

// LoadStyle appends a stylesheet link to the head. It has no completion signal.
func (l *Loader) LoadStyle(url string) {
	l.page.AppendHead(fmt.Sprintf(`<link href="%s" type="text/css" rel="stylesheet">`, html.EscapeString(url)))
}
