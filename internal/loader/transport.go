package loader

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/logging"
)

// BuiltinScheme prefixes resources provided in-process.
const BuiltinScheme = "builtin:"

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, url string, notify func(ReadyState))

func (f TransportFunc) Open(ctx context.Context, url string, notify func(ReadyState)) {
	f(ctx, url, notify)
}

// BuiltinTransport completes in-process resources at once. Like a browser that
// fires both the load event and the legacy readystatechange, it reports both
// terminal states.
type BuiltinTransport struct{}

func (BuiltinTransport) Open(ctx context.Context, url string, notify func(ReadyState)) {
	if ctx.Err() != nil {
		return
	}
	notify(StateLoading)
	notify(StateLoaded)
	notify(StateComplete)
}

// HTTPTransport probes a remote resource with a GET. A resource that cannot be
// retrieved never becomes ready.
type HTTPTransport struct {
	Client *http.Client
	Log    *zap.Logger
}

func (t *HTTPTransport) Open(ctx context.Context, url string, notify func(ReadyState)) {
	log := logging.OrNop(t.Log)
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	notify(StateLoading)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn("Resource stalled", zap.String("url", url), zap.Error(err))
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("Resource stalled", zap.String("url", url), zap.Error(err))
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("Resource stalled", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return
	}
	notify(StateInteractive)
	notify(StateLoaded)
	notify(StateComplete)
}

// Mux routes builtin: resources to Builtin and everything else to Remote.
type Mux struct {
	Builtin Transport
	Remote  Transport
}

// NewMux returns a Mux with a BuiltinTransport and the given remote transport.
func NewMux(remote Transport) *Mux {
	return &Mux{Builtin: BuiltinTransport{}, Remote: remote}
}

func (m *Mux) Open(ctx context.Context, url string, notify func(ReadyState)) {
	if strings.HasPrefix(url, BuiltinScheme) || m.Remote == nil {
		m.Builtin.Open(ctx, url, notify)
		return
	}
	m.Remote.Open(ctx, url, notify)
}
