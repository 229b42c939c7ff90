package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filter"
)

func TestInsert_CreatesRow(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)
	changes := observe(t, s)

	res, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)

	assert.Equal(t, Created, res.Outcome)
	assert.Equal(t, artwork.RowURI(testAuthority, res.ID), res.URI)
	assert.Equal(t, []Change{{URI: res.URI}}, drain(changes))

	got, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Token)
	assert.Equal(t, "First", got.Title)
	assert.True(t, got.DateAdded.Equal(testEpoch))
	assert.True(t, got.DateModified.Equal(testEpoch))
	assert.NotEmpty(t, got.Data)
	assert.Equal(t, "1", filepath.Base(got.Data))
}

func TestInsert_IdenticalTokenRefreshesSilently(t *testing.T) {
	s := createTestStore(t)
	ctx, mock := testContext(t)

	first, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)
	before, err := s.Get(ctx, first.ID)
	require.NoError(t, err)

	changes := observe(t, s)
	mock.Add(time.Minute)

	again, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)

	assert.Equal(t, Refreshed, again.Outcome)
	assert.Equal(t, first.ID, again.ID)
	assert.Empty(t, drain(changes), "refresh must not announce a change")

	after, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, after.DateModified.After(before.DateModified))
	assert.True(t, after.DateAdded.Equal(before.DateAdded))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsert_ChangedFieldsUpdateInPlace(t *testing.T) {
	s := createTestStore(t)
	ctx, mock := testContext(t)

	first, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)
	before, err := s.Get(ctx, first.ID)
	require.NoError(t, err)

	changes := observe(t, s)
	mock.Add(time.Minute)

	changed := testArtwork("t1", "Renamed")
	changed.Byline = ""
	res, err := s.Insert(ctx, changed)
	require.NoError(t, err)

	assert.Equal(t, Updated, res.Outcome)
	assert.Equal(t, first.ID, res.ID)
	assert.Equal(t, []Change{{URI: res.URI}}, drain(changes))

	after, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", after.Title)
	assert.Empty(t, after.Byline, "cleared field is cleared")
	assert.Equal(t, before.Data, after.Data)
	assert.True(t, after.DateAdded.Equal(before.DateAdded))
	assert.True(t, after.DateModified.Equal(testEpoch.Add(time.Minute)))
}

func TestInsert_EmptyTokenNeverDedupes(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	a, err := s.Insert(ctx, testArtwork("", "Same"))
	require.NoError(t, err)
	b, err := s.Insert(ctx, testArtwork("", "Same"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, Created, b.Outcome)
}

func TestInsert_TokensAreNormalised(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	a, err := s.Insert(ctx, testArtwork("caf\u00e9", "Coffee"))
	require.NoError(t, err)
	b, err := s.Insert(ctx, testArtwork("cafe\u0301", "Coffee"))
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
}

func TestInsert_PersistentURISelectsDataPath(t *testing.T) {
	var seen []bool
	s := createTestStore(t, WithDataPath(func(id int64, hasPersistentURI bool) (string, error) {
		seen = append(seen, hasPersistentURI)
		return filepath.Join(t.TempDir(), "x"), nil
	}))
	ctx, _ := testContext(t)

	_, err := s.Insert(ctx, testArtwork("a", "A"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, artwork.Artwork{Token: "b", Title: "B"})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, seen)
}

func TestStamps_StrictlyIncreaseWithFrozenClock(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	var last time.Time
	for i := 0; i < 5; i++ {
		res, err := s.Insert(ctx, artwork.Artwork{Title: "x"})
		require.NoError(t, err)
		a, err := s.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.True(t, a.DateModified.After(last), "stamp %d did not advance", i)
		last = a.DateModified
	}
}

func TestStamps_ResumeAfterReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	ctx, mock := testContext(t)

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, artwork.Artwork{Title: "x"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Wall clock goes backwards across the restart.
	mock.Set(testEpoch.Add(-time.Hour))

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	res, err := s.Insert(ctx, artwork.Artwork{Title: "y"})
	require.NoError(t, err)
	a, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, a.DateModified.After(testEpoch))
}

func TestUpdate_StripsImmutableColumns(t *testing.T) {
	s := createTestStore(t)
	ctx, mock := testContext(t)

	res, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)
	before, err := s.Get(ctx, res.ID)
	require.NoError(t, err)

	mock.Add(time.Hour)
	added := testEpoch.Add(-24 * time.Hour)
	n, err := s.Update(ctx, Row(res.ID), nil, artwork.Values{
		Token:     artwork.String("other"),
		Data:      artwork.String("/elsewhere"),
		DateAdded: &added,
		Title:     artwork.String("Second"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	after, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second", after.Title)
	assert.Equal(t, before.Token, after.Token)
	assert.Equal(t, before.Data, after.Data)
	assert.True(t, after.DateAdded.Equal(before.DateAdded))
	assert.True(t, after.DateModified.Equal(testEpoch.Add(time.Hour)))
}

func TestUpdate_NoMatchDoesNotNotify(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)
	changes := observe(t, s)

	n, err := s.Update(ctx, Row(42), nil, artwork.Values{Title: artwork.String("x")})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, drain(changes))
}

func TestUpdate_WithFilterNotifiesSelector(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	_, err := s.Insert(ctx, testArtwork("a", "A"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, testArtwork("b", "B"))
	require.NoError(t, err)
	changes := observe(t, s)

	n, err := s.Update(ctx, All, filter.Equals{Column: artwork.ColumnToken, Value: "b"},
		artwork.Values{Attribution: artwork.String("CC0")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []Change{{URI: s.ContentURI()}}, drain(changes))
}

func TestDelete_RemovesFileThenRow(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	res, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)
	a, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(a.Data), 0o755))
	require.NoError(t, os.WriteFile(a.Data, []byte("image"), 0o644))

	changes := observe(t, s)
	n, err := s.Delete(ctx, Row(res.ID), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []Change{{URI: res.URI}}, drain(changes))

	_, err = os.Stat(a.Data)
	assert.True(t, os.IsNotExist(err), "cache file should be removed")

	_, err = s.Get(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_MissingFileIsFine(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	res, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)

	n, err := s.Delete(ctx, Row(res.ID), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBatch_CoalescesToCollection(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)
	changes := observe(t, s)

	err := s.Batch(ctx, func(tx *Tx) error {
		for _, tok := range []string{"a", "b", "c"} {
			if _, err := tx.Insert(ctx, testArtwork(tok, tok)); err != nil {
				return err
			}
		}
		_, err := tx.Delete(ctx, All, filter.Equals{Column: artwork.ColumnToken, Value: "b"})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []Change{{URI: s.ContentURI()}}, drain(changes))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBatch_ErrorRollsBackAndStillNotifies(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)
	changes := observe(t, s)
	boom := errors.New("boom")

	err := s.Batch(ctx, func(tx *Tx) error {
		if _, err := tx.Insert(ctx, testArtwork("a", "A")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, []Change{{URI: s.ContentURI()}}, drain(changes))
}

func TestBatch_SeesOwnWrites(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	err := s.Batch(ctx, func(tx *Tx) error {
		res, err := tx.Insert(ctx, testArtwork("a", "A"))
		if err != nil {
			return err
		}
		a, err := tx.Get(ctx, res.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "A", a.Title)
		return nil
	})
	require.NoError(t, err)
}

func TestBatch_RollbackKeepsDeletedFile(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	res, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)
	a, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(a.Data), 0o755))
	require.NoError(t, os.WriteFile(a.Data, []byte("image"), 0o644))

	boom := errors.New("boom")
	err = s.Batch(ctx, func(tx *Tx) error {
		n, err := tx.Delete(ctx, Row(res.ID), nil)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), n)
		_, err = os.Stat(a.Data)
		assert.NoError(t, err, "file must survive until commit")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Data, got.Data)
	data, err := os.ReadFile(a.Data)
	require.NoError(t, err)
	assert.Equal(t, []byte("image"), data)
}

func TestBatch_CommitRemovesDeletedFile(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	res, err := s.Insert(ctx, testArtwork("t1", "First"))
	require.NoError(t, err)
	a, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(a.Data), 0o755))
	require.NoError(t, os.WriteFile(a.Data, []byte("image"), 0o644))

	err = s.Batch(ctx, func(tx *Tx) error {
		_, err := tx.Delete(ctx, Row(res.ID), nil)
		return err
	})
	require.NoError(t, err)

	_, err = os.Stat(a.Data)
	assert.True(t, os.IsNotExist(err), "cache file should be removed after commit")
}

func TestBatch_PanicReleasesWriteLock(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	assert.Panics(t, func() {
		_ = s.Batch(ctx, func(tx *Tx) error {
			if _, err := tx.Insert(ctx, testArtwork("a", "A")); err != nil {
				return err
			}
			panic("callback exploded")
		})
	})

	res, err := s.Insert(ctx, testArtwork("b", "B"))
	require.NoError(t, err)
	assert.Equal(t, Created, res.Outcome)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "panicked batch must roll back")
}

func TestNotifier_UnregisterStopsDelivery(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	ch := make(chan Change, 1)
	require.NoError(t, s.Register(ch))
	s.Unregister(ch)

	_, err := s.Insert(ctx, testArtwork("a", "A"))
	require.NoError(t, err)
	assert.Empty(t, drain(ch))
}

func TestNotifier_SlowObserverDoesNotBlock(t *testing.T) {
	s := createTestStore(t)
	ctx, _ := testContext(t)

	ch := make(chan Change) // unbuffered, never read
	require.NoError(t, s.Register(ch))
	defer s.Unregister(ch)

	_, err := s.Insert(ctx, testArtwork("a", "A"))
	require.NoError(t, err)
}

func TestNotifier_RejectsNil(t *testing.T) {
	s := createTestStore(t)
	assert.ErrorIs(t, s.Register(nil), ErrNilObserver)
}
