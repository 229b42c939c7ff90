package provider

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/artprovider/internal/artwork"
)

const testAuthority = "com.example.art"

// loadHooks implements only the required hook.
type loadHooks struct {
	mu    sync.Mutex
	loads []bool
}

func (h *loadHooks) OnLoadRequested(ctx context.Context, p *Provider, initial bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loads = append(h.loads, initial)
	return nil
}

// fullHooks implements every optional hook.
type fullHooks struct {
	loadHooks
	invalid   []int64
	triggered []int
	reject    map[int64]bool
}

func (h *fullHooks) OnInvalidArtwork(ctx context.Context, p *Provider, a artwork.Artwork) error {
	h.invalid = append(h.invalid, a.ID)
	return nil
}

func (h *fullHooks) IsArtworkValid(ctx context.Context, a artwork.Artwork) bool {
	return !h.reject[a.ID]
}

func (h *fullHooks) Description(ctx context.Context) string {
	return "Daily paintings"
}

func (h *fullHooks) Commands(ctx context.Context, a artwork.Artwork) []artwork.UserCommand {
	return []artwork.UserCommand{{ID: 1, Title: "Share"}, {ID: 2, Title: "Skip"}}
}

func (h *fullHooks) OnCommand(ctx context.Context, p *Provider, a artwork.Artwork, id int) error {
	h.triggered = append(h.triggered, id)
	return nil
}

func (h *fullHooks) ArtworkInfo(ctx context.Context, a artwork.Artwork) (string, bool) {
	return "app://details/" + a.Token, true
}

func (h *fullHooks) OpenArtworkInfo(ctx context.Context, a artwork.Artwork) bool {
	return true
}

func createTestProvider(t *testing.T, hooks LoadRequester, configure ...func(*Config)) *Provider {
	t.Helper()
	root := t.TempDir()
	cfg := Config{
		Authority: testAuthority,
		CacheDir:  filepath.Join(root, "cache"),
		FilesDir:  filepath.Join(root, "files"),
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	p, err := New(cfg, hooks)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// cacheFile writes a's cache file as if it had been fetched.
func cacheFile(t *testing.T, p *Provider, uri string) string {
	t.Helper()
	addr, err := artwork.ParseURI(uri)
	require.NoError(t, err)
	a, err := p.Store().Get(context.Background(), addr.ID)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(a.Data, []byte("cached"), 0o644))
	return a.Data
}
