// Package recency persists which artwork a consumer has loaded recently.
//
// The state of each provider lives in its own file,
// <dir>/<authority>.loadstate, CBOR encoded and replaced atomically on every
// write.
package recency

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/tilinna/clock"

	"github.com/roach88/artprovider/internal/codec"
)

// MaxRecentArtwork caps the recent-ids window regardless of collection size.
const MaxRecentArtwork = 100

// LoadInfo is the persisted load state of one provider.
type LoadInfo struct {
	// MaxLoadedArtworkID is the highest row id ever marked loaded.
	MaxLoadedArtworkID int64 `json:"max_loaded_artwork_id" cbor:"max_loaded_artwork_id"`
	// LastLoadedTime is when artwork was last marked loaded. Zero if never.
	LastLoadedTime time.Time `json:"last_loaded_time" cbor:"last_loaded_time"`
	// RecentArtworkIDs is ordered oldest to newest with no duplicates.
	RecentArtworkIDs []int64 `json:"recent_artwork_ids" cbor:"recent_artwork_ids"`
}

// Store reads and writes the load state file of one provider.
//
// Thread-safety: Store is safe for concurrent use. Concurrent MarkLoaded
// calls are serialised.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// Open returns the store for authority under dir, creating dir if needed.
// The state file itself is created by the first MarkLoaded.
func Open(dir, authority string, logger *slog.Logger) (*Store, error) {
	if authority == "" {
		return nil, errors.New("open load state: authority must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open load state: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		path:   filepath.Join(dir, authority+".loadstate"),
		logger: logger,
	}, nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the current state. A missing file yields the zero state with
// an empty (non-nil) recent list.
func (s *Store) Load(ctx context.Context) (LoadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// MarkLoaded records that the artwork with id was loaded, given the
// collection currently holds rowCount rows.
//
// The high-water mark is raised to id if larger, the load time is set to
// now, and id moves to the newest end of the recent list. The list is then
// trimmed from the oldest end to at most clamp(rowCount, 1, MaxRecentArtwork)
// entries. The trimmed ids are returned, oldest first, so the caller can
// evict their cache files.
func (s *Store) MarkLoaded(ctx context.Context, id int64, rowCount int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.read()
	if err != nil {
		return nil, err
	}

	if id > info.MaxLoadedArtworkID {
		info.MaxLoadedArtworkID = id
	}
	info.LastLoadedTime = clock.FromContext(ctx).Now()

	recent := slices.DeleteFunc(info.RecentArtworkIDs, func(v int64) bool { return v == id })
	recent = append(recent, id)

	limit := min(max(rowCount, 1), MaxRecentArtwork)
	var evicted []int64
	if over := len(recent) - limit; over > 0 {
		evicted = slices.Clone(recent[:over])
		recent = recent[over:]
	}
	info.RecentArtworkIDs = recent

	if err := s.write(info); err != nil {
		return nil, err
	}
	if len(evicted) > 0 {
		s.logger.Debug("recent artwork window trimmed", "loaded", id, "evicted", len(evicted), "window", limit)
	}
	return evicted, nil
}

func (s *Store) read() (LoadInfo, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return LoadInfo{RecentArtworkIDs: []int64{}}, nil
	}
	if err != nil {
		return LoadInfo{}, fmt.Errorf("read load state: %w", err)
	}

	var info LoadInfo
	if err := codec.Unmarshal(data, &info); err != nil {
		return LoadInfo{}, fmt.Errorf("decode load state %s: %w", s.path, err)
	}
	if info.RecentArtworkIDs == nil {
		info.RecentArtworkIDs = []int64{}
	}
	return info, nil
}

// write replaces the state file atomically: a reader sees either the old
// state or the new one, never a partial file.
func (s *Store) write(info LoadInfo) error {
	data, err := codec.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode load state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write load state: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write load state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write load state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write load state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write load state: %w", err)
	}
	return nil
}
