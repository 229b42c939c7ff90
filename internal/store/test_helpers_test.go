package store

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/tilinna/clock"

	"github.com/roach88/artprovider/internal/artwork"
)

const testAuthority = "com.example.art"

var testEpoch = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	opts = append([]Option{
		WithAuthority(testAuthority),
		WithDataPath(func(id int64, hasPersistentURI bool) (string, error) {
			return filepath.Join(dir, "data", strconv.FormatInt(id, 10)), nil
		}),
	}, opts...)
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testContext returns a context carrying a mock clock frozen at testEpoch.
func testContext(t *testing.T) (context.Context, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock(testEpoch)
	return clock.Context(context.Background(), mock), mock
}

// observe registers a buffered observer and returns it.
func observe(t *testing.T, s *Store) chan Change {
	t.Helper()
	ch := make(chan Change, 64)
	if err := s.Register(ch); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	t.Cleanup(func() { s.Unregister(ch) })
	return ch
}

// drain returns every change currently buffered in ch.
func drain(ch chan Change) []Change {
	var out []Change
	for {
		select {
		case c := <-ch:
			out = append(out, c)
		default:
			return out
		}
	}
}

func testArtwork(token, title string) artwork.Artwork {
	return artwork.Artwork{
		Token:         token,
		Title:         title,
		Byline:        "Byline of " + title,
		PersistentURI: "https://example.com/" + token + ".jpg",
	}
}
