package filecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/roach88/artprovider/internal/artwork"
)

// dirPrefix namespaces each authority's files inside the shared roots.
const dirPrefix = "artprovider_"

// Config configures a Cache.
type Config struct {
	Authority string
	// CacheRoot holds files that can be fetched again.
	CacheRoot string
	// FilesRoot holds files written by the producer.
	FilesRoot string
	// Fetcher fills missing files. Defaults to a DefaultFetcher.
	Fetcher Fetcher
	Logger  *slog.Logger
}

// Cache manages the cache files of one provider.
//
// Thread-safety: Cache is safe for concurrent use.
type Cache struct {
	cacheDir string
	filesDir string
	fetcher  Fetcher
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.RWMutex
}

// New returns a cache for cfg.Authority.
func New(cfg Config) (*Cache, error) {
	if cfg.Authority == "" {
		return nil, errors.New("new file cache: authority must not be empty")
	}
	if cfg.CacheRoot == "" || cfg.FilesRoot == "" {
		return nil, errors.New("new file cache: cache and files roots must be set")
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = &DefaultFetcher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		cacheDir: filepath.Join(cfg.CacheRoot, dirPrefix+cfg.Authority),
		filesDir: filepath.Join(cfg.FilesRoot, dirPrefix+cfg.Authority),
		fetcher:  cfg.Fetcher,
		logger:   cfg.Logger,
		locks:    make(map[int64]*sync.RWMutex),
	}, nil
}

// Path returns where the file of row id lives.
func (c *Cache) Path(id int64, hasPersistentURI bool) string {
	dir := c.filesDir
	if hasPersistentURI {
		dir = c.cacheDir
	}
	return filepath.Join(dir, strconv.FormatInt(id, 10))
}

// Prepare is Path that also creates the containing directory.
func (c *Cache) Prepare(id int64, hasPersistentURI bool) (string, error) {
	path := c.Path(id, hasPersistentURI)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}
	return path, nil
}

// lock returns the lock of row id, creating it on first use.
func (c *Cache) lock(id int64) *sync.RWMutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[id]
	if !ok {
		l = &sync.RWMutex{}
		c.locks[id] = l
	}
	return l
}

// Forget drops the lock of row id. Called once the row itself is gone.
func (c *Cache) Forget(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, id)
}

// Open opens the cache file of a in mode.
//
// When the file does not exist and mode is read-only, it is first fetched
// from a's persistent URI. A failed fetch leaves no partial file behind;
// the returned error says whether it is recoverable (see IsRecoverable).
func (c *Cache) Open(ctx context.Context, a artwork.Artwork, mode Mode) (*os.File, error) {
	flags, err := mode.flags()
	if err != nil {
		return nil, err
	}
	if a.Data == "" {
		return nil, fmt.Errorf("open artwork %d: no data path", a.ID)
	}

	l := c.lock(a.ID)

	l.RLock()
	missing := !exists(a.Data)
	if !missing || !mode.ReadOnly() {
		defer l.RUnlock()
		return open(a, mode, flags)
	}
	l.RUnlock()

	l.Lock()
	defer l.Unlock()
	// Another open may have fetched it while we waited.
	if !exists(a.Data) {
		if err := c.fetch(ctx, a); err != nil {
			return nil, err
		}
	}
	return open(a, mode, flags)
}

// open opens a's file. Must hold the row's lock.
func open(a artwork.Artwork, mode Mode, flags int) (*os.File, error) {
	if !mode.ReadOnly() {
		if err := os.MkdirAll(filepath.Dir(a.Data), 0o755); err != nil {
			return nil, fmt.Errorf("open artwork %d: %w", a.ID, err)
		}
	}
	f, err := os.OpenFile(a.Data, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open artwork %d: %w", a.ID, err)
	}
	return f, nil
}

// fetch downloads a's image into its data path. Must hold the row's write
// lock.
func (c *Cache) fetch(ctx context.Context, a artwork.Artwork) (err error) {
	if !a.HasPersistentURI() {
		return fmt.Errorf("fetch artwork %d: %w", a.ID, ErrNoPersistentURI)
	}
	if err := os.MkdirAll(filepath.Dir(a.Data), 0o755); err != nil {
		return fmt.Errorf("fetch artwork %d: %w: %w", a.ID, ErrFetchFailed, err)
	}

	defer func() {
		if err == nil {
			return
		}
		// Start from scratch next time.
		if rmErr := os.Remove(a.Data); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.logger.Info("failed to remove partial artwork file", "id", a.ID, "path", a.Data, "error", rmErr)
		}
		var perm *PermanentError
		if !errors.As(err, &perm) {
			err = fmt.Errorf("fetch artwork %d: %w: %w", a.ID, ErrFetchFailed, err)
		}
	}()

	src, err := c.fetcher.Fetch(ctx, a)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(a.Data)
	if err != nil {
		return err
	}
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	c.logger.Debug("artwork fetched", "id", a.ID, "uri", a.PersistentURI, "bytes", n)
	return nil
}

// Evict removes the file of a when it can be fetched again. Files of rows
// without a persistent URI are never evicted. It reports whether a file was
// removed.
func (c *Cache) Evict(ctx context.Context, a artwork.Artwork) (bool, error) {
	if !a.HasPersistentURI() || a.Data == "" {
		return false, nil
	}

	l := c.lock(a.ID)
	l.Lock()
	defer l.Unlock()

	if !exists(a.Data) {
		return false, nil
	}
	if err := os.Remove(a.Data); err != nil {
		return false, fmt.Errorf("evict artwork %d: %w", a.ID, err)
	}
	c.logger.Debug("artwork file evicted", "id", a.ID, "path", a.Data)
	return true, nil
}

// Remove deletes the file at path. A missing file is not an error.
func (c *Cache) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artwork file: %w", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
