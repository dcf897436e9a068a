package site

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/document"
	"github.com/ziadkadry99/markpage/internal/highlight"
	"github.com/ziadkadry99/markpage/internal/logging"
	"github.com/ziadkadry99/markpage/internal/manifest"
	"github.com/ziadkadry99/markpage/internal/visits"
)

// Handler serves rendered pages and their assets.
type Handler struct {
	renderer     *Renderer
	visits       *visits.Store
	highlightCSS string
	log          *zap.Logger
}

// NewHandler creates a Handler. visitStore may be nil to disable the visit stream.
func NewHandler(renderer *Renderer, visitStore *visits.Store, highlightStyle string, log *zap.Logger) (*Handler, error) {
	css, err := highlight.Stylesheet(highlightStyle)
	if err != nil {
		return nil, err
	}
	return &Handler{renderer: renderer, visits: visitStore, highlightCSS: css, log: logging.OrNop(log)}, nil
}

// RegisterRoutes mounts the site on r.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.handlePage)
	r.Get("/style.css", cssHandler(styleCSS))
	r.Get("/marked.css", cssHandler(markedCSS))
	r.Get(highlight.StylesheetPath, cssHandler(h.highlightCSS))
	if h.visits != nil {
		r.Get("/ws/visits", visits.StreamHandler(h.visits, h.log))
	}
}

func cssHandler(css string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Write([]byte(css))
	}
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	req := Request{
		ID:      manifest.Identity(r.URL.RawQuery),
		Toggles: r.URL.Query()["k"],
	}

	rendered, err := h.renderer.Render(r.Context(), req)
	if err != nil {
		status, title := classify(err)
		h.log.Warn("Page render failed", zap.String("page", req.ID), zap.Int("status", status), zap.Error(err))
		page, perr := ErrorPage(title, err.Error())
		if perr != nil {
			http.Error(w, err.Error(), status)
			return
		}
		writePage(w, status, page)
		return
	}
	writePage(w, http.StatusOK, rendered.Page)
}

// classify maps a render error to an HTTP status and a page title.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, manifest.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "Timed out"
	default:
		return http.StatusBadGateway, "Content unavailable"
	}
}

func writePage(w http.ResponseWriter, status int, page *document.Page) {
	out, err := page.HTML()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(strings.TrimSpace(out) + "\n"))
}
