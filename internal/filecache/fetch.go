package filecache

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
	"sync"
	"time"

	"github.com/roach88/artprovider/internal/artwork"
)

// Fetcher opens the image bytes behind an artwork's persistent URI.
//
// Errors that will not go away on retry must be returned as
// *PermanentError. Anything else is treated as recoverable.
type Fetcher interface {
	Fetch(ctx context.Context, a artwork.Artwork) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, a artwork.Artwork) (io.ReadCloser, error)

func (f FetcherFunc) Fetch(ctx context.Context, a artwork.Artwork) (io.ReadCloser, error) {
	return f(ctx, a)
}

// ContentResolver opens content:// references of one authority.
type ContentResolver interface {
	OpenContent(ctx context.Context, u *url.URL) (io.ReadCloser, error)
}

// DefaultTimeout bounds HTTP fetches when no client is configured.
const DefaultTimeout = 30 * time.Second

// assetPrefix marks a file:// reference to a bundled asset.
const assetPrefix = "android_asset"

// DefaultFetcher resolves persistent URIs by scheme:
//
//	content://<authority>/...       registered ContentResolver
//	android.resource://, res://     Resources
//	file:///android_asset/<path>    Assets
//	file:///<path>                  local filesystem
//	http://, https://               HTTPClient, 2xx only
//
// Any other scheme is a permanent error.
type DefaultFetcher struct {
	HTTPClient *http.Client
	// Assets holds bundled assets. A missing asset is permanent.
	Assets fs.FS
	// Resources holds bundled resources, addressed as <host>/<path>.
	Resources fs.FS

	mu       sync.RWMutex
	contents map[string]ContentResolver
}

// RegisterContent makes r the resolver for content://authority references.
func (f *DefaultFetcher) RegisterContent(authority string, r ContentResolver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contents == nil {
		f.contents = make(map[string]ContentResolver)
	}
	f.contents[authority] = r
}

func (f *DefaultFetcher) resolver(authority string) (ContentResolver, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.contents[authority]
	return r, ok
}

// Fetch implements Fetcher.
func (f *DefaultFetcher) Fetch(ctx context.Context, a artwork.Artwork) (io.ReadCloser, error) {
	raw := a.PersistentURI
	if raw == "" {
		return nil, ErrNoPersistentURI
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, permanent(raw, "malformed uri", err)
	}

	switch u.Scheme {
	case "":
		return nil, permanent(raw, "uri has no scheme", nil)
	case artwork.Scheme:
		return f.fetchContent(ctx, raw, u)
	case "android.resource", "res":
		return f.fetchResource(raw, u)
	case "file":
		return f.fetchFile(raw, u)
	case "http", "https":
		return f.fetchHTTP(ctx, raw)
	default:
		return nil, permanent(raw, fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
}

func (f *DefaultFetcher) fetchContent(ctx context.Context, raw string, u *url.URL) (io.ReadCloser, error) {
	r, ok := f.resolver(u.Host)
	if !ok {
		return nil, permanent(raw, fmt.Sprintf("no provider for authority %q", u.Host), nil)
	}
	return r.OpenContent(ctx, u)
}

func (f *DefaultFetcher) fetchResource(raw string, u *url.URL) (io.ReadCloser, error) {
	if f.Resources == nil {
		return nil, permanent(raw, "no resources configured", nil)
	}
	name := path.Join(u.Host, strings.TrimPrefix(u.Path, "/"))
	return openBundled(f.Resources, raw, name)
}

func (f *DefaultFetcher) fetchFile(raw string, u *url.URL) (io.ReadCloser, error) {
	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segments) > 1 && segments[0] == assetPrefix {
		if f.Assets == nil {
			return nil, permanent(raw, "no assets configured", nil)
		}
		return openBundled(f.Assets, raw, path.Join(segments[1:]...))
	}
	// A local file that is not there yet may appear later.
	return os.Open(u.Path)
}

func openBundled(fsys fs.FS, raw, name string) (io.ReadCloser, error) {
	file, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
		return nil, permanent(raw, "bundled file not found", err)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (f *DefaultFetcher) fetchHTTP(ctx context.Context, raw string) (io.ReadCloser, error) {
	client := f.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, permanent(raw, "malformed request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, permanent(raw, fmt.Sprintf("http status %d", resp.StatusCode), nil)
	}
	return resp.Body, nil
}
