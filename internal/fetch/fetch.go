// Package fetch retrieves the manifest and content documents as raw text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrStatus is returned when an HTTP retrieval does not answer 200.
var ErrStatus = errors.New("unexpected status")

// Fetcher retrieves a document by path relative to a content root.
type Fetcher interface {
	Fetch(ctx context.Context, p string) (string, error)
}

// New returns an HTTP fetcher for http(s) roots and a directory fetcher otherwise.
func New(root string) (Fetcher, error) {
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		return NewHTTPFetcher(root, nil)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("content root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory", root)
	}
	return NewDirFetcher(os.DirFS(root)), nil
}

// HTTPFetcher fetches documents over HTTP relative to a base URL.
type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client gets a 30s default.
func NewHTTPFetcher(base string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing content root: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{base: u, client: client}, nil
}

// Client returns the HTTP client used for retrieval.
func (f *HTTPFetcher) Client() *http.Client { return f.client }

// Resolve turns a content path into an absolute URL.
func (f *HTTPFetcher) Resolve(p string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(p, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", p, err)
	}
	return f.base.ResolveReference(ref).String(), nil
}

// Fetch performs an unauthenticated GET and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, p string) (string, error) {
	target, err := f.Resolve(p)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: %w %d", target, ErrStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", target, err)
	}
	return string(body), nil
}

// DirFetcher reads documents from a local content tree.
type DirFetcher struct {
	fsys fs.FS
}

// NewDirFetcher wraps fsys.
func NewDirFetcher(fsys fs.FS) *DirFetcher {
	return &DirFetcher{fsys: fsys}
}

// Fetch reads p from the tree. Paths escaping the root are rejected.
func (f *DirFetcher) Fetch(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := path.Clean(strings.TrimPrefix(p, "/"))
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid content path %q: %w", p, fs.ErrInvalid)
	}
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}

// FetchAsync retrieves p in the background. onComplete fires exactly once
// with the full text, and never when the transfer fails.
func FetchAsync(ctx context.Context, f Fetcher, p string, log *zap.Logger, onComplete func(text string)) {
	go func() {
		text, err := f.Fetch(ctx, p)
		if err != nil {
			if log != nil {
				log.Warn("Fetch did not complete", zap.String("path", p), zap.Error(err))
			}
			return
		}
		onComplete(text)
	}()
}
