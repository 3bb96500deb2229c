package wsdl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxDocumentBytes caps the size of a single fetched document.
const DefaultMaxDocumentBytes = 10 << 20

// Fetcher retrieves the raw bytes of a descriptor document.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// HTTPFetcher fetches documents over HTTP(S). Any other location fails with
// ErrFetch unless the fetcher was built WithLocalFiles.
type HTTPFetcher struct {
	client     *http.Client
	maxBytes   int64
	localFiles bool
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithLocalFiles lets the fetcher read locations without a scheme, or with the
// file scheme, from the local filesystem. Only command-line tools should set
// it; a server must not expose its filesystem to callers.
func WithLocalFiles() FetcherOption {
	return func(f *HTTPFetcher) { f.localFiles = true }
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration, opts ...FetcherOption) *HTTPFetcher {
	return NewHTTPFetcherWithClient(&http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, opts...)
}

// NewHTTPFetcherWithClient creates a fetcher backed by a pre-built client.
func NewHTTPFetcherWithClient(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{client: client, maxBytes: DefaultMaxDocumentBytes}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if isLocalPath(location) {
		if !f.localFiles {
			return nil, fmt.Errorf("%w: %s: local files are not allowed", ErrFetch, location)
		}
		path := strings.TrimPrefix(location, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, location, err)
		}
		return data, nil
	}
	if !isRemote(location) {
		return nil, fmt.Errorf("%w: %s: unsupported scheme", ErrFetch, location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, location, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrFetch, location, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, location, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s: document exceeds %d bytes", ErrFetch, location, f.maxBytes)
	}
	return data, nil
}

func isLocalPath(location string) bool {
	if strings.HasPrefix(location, "file://") {
		return true
	}
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	// Single-letter schemes are Windows drive letters.
	return u.Scheme == "" || len(u.Scheme) == 1
}

func isRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// resolveLocation resolves ref relative to the document at base.
func resolveLocation(base, ref string) string {
	if ref == "" {
		return base
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() && len(u.Scheme) > 1 {
		return ref
	}
	if isLocalPath(base) {
		if filepath.IsAbs(ref) {
			return ref
		}
		prefix := ""
		path := base
		if strings.HasPrefix(base, "file://") {
			prefix = "file://"
			path = strings.TrimPrefix(base, "file://")
		}
		return prefix + filepath.Join(filepath.Dir(path), ref)
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}
