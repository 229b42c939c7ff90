package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filecache"
	"github.com/roach88/artprovider/internal/recency"
	"github.com/roach88/artprovider/internal/store"
)

var (
	// ErrInvalidArtwork is returned by OpenFile for a row that failed
	// validation. The invalid-artwork hook has already run.
	ErrInvalidArtwork = errors.New("artwork marked invalid")

	// ErrWrongAuthority is returned for an address of another provider.
	ErrWrongAuthority = errors.New("address belongs to another provider")
)

// Config configures a Provider.
type Config struct {
	// Authority names the provider. It scopes every address, the cache
	// directories and the load state file.
	Authority string
	// Database is the SQLite file. Defaults to <FilesDir>/<Authority>.db.
	Database string
	// CacheDir holds evictable image files.
	CacheDir string
	// FilesDir holds image files that cannot be fetched again.
	FilesDir string
	// StateDir holds the load state. Defaults to FilesDir.
	StateDir string
	// Description is returned by get_description when the hooks do not
	// implement Describer.
	Description string

	// Fetcher replaces the default fetch procedure. A hooks value that
	// implements filecache.Fetcher takes precedence.
	Fetcher filecache.Fetcher
	// HTTPClient is used by the default fetcher.
	HTTPClient *http.Client
	// FetchTimeout bounds default HTTP fetches when HTTPClient is nil.
	FetchTimeout time.Duration
	// Assets and Resources back file:///android_asset/ and
	// android.resource:// references.
	Assets    fs.FS
	Resources fs.FS
	// URLOpener opens a web URI for the deprecated open_artwork_info
	// method. Without it that method reports failure.
	URLOpener func(ctx context.Context, uri string) error

	Logger *slog.Logger
}

// Provider is one artwork provider instance.
//
// Thread-safety: Provider is safe for concurrent use.
type Provider struct {
	authority   string
	description string
	urlOpener   func(ctx context.Context, uri string) error

	hooks   LoadRequester
	store   *store.Store
	cache   *filecache.Cache
	recency *recency.Store
	logger  *slog.Logger
}

// New opens the provider described by cfg.
func New(cfg Config, hooks LoadRequester) (*Provider, error) {
	if hooks == nil {
		return nil, errors.New("new provider: hooks must implement LoadRequester")
	}
	if cfg.Authority == "" {
		return nil, errors.New("new provider: authority must not be empty")
	}
	if cfg.CacheDir == "" || cfg.FilesDir == "" {
		return nil, errors.New("new provider: cache and files directories must be set")
	}
	if cfg.StateDir == "" {
		cfg.StateDir = cfg.FilesDir
	}
	if cfg.Database == "" {
		cfg.Database = filepath.Join(cfg.FilesDir, cfg.Authority+".db")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	logger := cfg.Logger.With("authority", cfg.Authority)

	p := &Provider{
		authority:   cfg.Authority,
		description: cfg.Description,
		urlOpener:   cfg.URLOpener,
		hooks:       hooks,
		logger:      logger,
	}

	fetcher := cfg.Fetcher
	if f, ok := hooks.(filecache.Fetcher); ok {
		fetcher = f
	}
	if fetcher == nil {
		client := cfg.HTTPClient
		if client == nil && cfg.FetchTimeout > 0 {
			client = &http.Client{Timeout: cfg.FetchTimeout}
		}
		def := &filecache.DefaultFetcher{
			HTTPClient: client,
			Assets:     cfg.Assets,
			Resources:  cfg.Resources,
		}
		def.RegisterContent(cfg.Authority, p)
		fetcher = def
	}

	cache, err := filecache.New(filecache.Config{
		Authority: cfg.Authority,
		CacheRoot: cfg.CacheDir,
		FilesRoot: cfg.FilesDir,
		Fetcher:   fetcher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("new provider: %w", err)
	}
	p.cache = cache

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return nil, fmt.Errorf("new provider: %w", err)
	}
	st, err := store.Open(cfg.Database,
		store.WithAuthority(cfg.Authority),
		store.WithDataPath(cache.Prepare),
		store.WithRemover(cache.Remove),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("new provider: %w", err)
	}
	p.store = st

	rec, err := recency.Open(cfg.StateDir, cfg.Authority, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("new provider: %w", err)
	}
	p.recency = rec

	return p, nil
}

// Close releases the provider's database.
func (p *Provider) Close() error {
	return p.store.Close()
}

// Authority returns the provider's authority.
func (p *Provider) Authority() string {
	return p.authority
}

// ContentURI returns the collection address.
func (p *Provider) ContentURI(ctx context.Context) (string, error) {
	return artwork.ContentURI(p.authority), nil
}

// Store exposes the row store, e.g. to register change observers.
func (p *Provider) Store() *store.Store {
	return p.store
}

// Cache exposes the file cache.
func (p *Provider) Cache() *filecache.Cache {
	return p.cache
}

// LoadInfo returns the persisted load state.
func (p *Provider) LoadInfo(ctx context.Context) (recency.LoadInfo, error) {
	return p.recency.Load(ctx)
}

// resolve parses uri and checks it addresses this provider.
func (p *Provider) resolve(uri string) (artwork.Address, error) {
	addr, err := artwork.ParseURI(uri)
	if err != nil {
		return artwork.Address{}, err
	}
	if addr.Authority != p.authority {
		return artwork.Address{}, fmt.Errorf("%w: %s", ErrWrongAuthority, uri)
	}
	return addr, nil
}

// row loads the row at uri. ok is false when uri is not a row address of
// this provider or the row does not exist.
func (p *Provider) row(ctx context.Context, uri string) (a artwork.Artwork, ok bool, err error) {
	addr, err := p.resolve(uri)
	if err != nil || !addr.IsRow() {
		return artwork.Artwork{}, false, nil
	}
	a, err = p.store.Get(ctx, addr.ID)
	if errors.Is(err, store.ErrNotFound) {
		return artwork.Artwork{}, false, nil
	}
	if err != nil {
		return artwork.Artwork{}, false, err
	}
	return a, true, nil
}
