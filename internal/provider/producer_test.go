package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filter"
	"github.com/roach88/artprovider/internal/store"
	"github.com/roach88/artprovider/internal/testutil"
)

func TestSetArtwork_ReplacesCollectionAndFiles(t *testing.T) {
	p := createTestProvider(t, &loadHooks{})
	ctx, mock := testutil.Context()

	first, err := p.SetArtwork(ctx,
		testutil.Artwork("a", "A"),
		testutil.Artwork("b", "B"),
		testutil.Artwork("c", "C"),
	)
	require.NoError(t, err)
	pathA := cacheFile(t, p, first[0])
	pathB := cacheFile(t, p, first[1])

	mock.Add(time.Minute)
	second, err := p.SetArtwork(ctx, testutil.Artwork("b", "B"), testutil.Artwork("d", "D"))
	require.NoError(t, err)

	assert.Equal(t, first[1], second[0], "b keeps its address")
	assert.NoFileExists(t, pathA)
	assert.FileExists(t, pathB)

	rows, err := p.Query(ctx, p.Store().ContentURI(), nil, filter.Asc(artwork.ColumnID))
	require.NoError(t, err)
	arts, err := rows.Collect()
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, "b", arts[0].Token)
	assert.Equal(t, "d", arts[1].Token)
}

func TestSetArtwork_NotifiesCollectionOnce(t *testing.T) {
	p := createTestProvider(t, &loadHooks{})
	ctx, _ := testutil.Context()

	ch := make(chan store.Change, 8)
	require.NoError(t, p.Store().Register(ch))

	_, err := p.SetArtwork(ctx, testutil.Artwork("a", "A"), testutil.Artwork("b", "B"))
	require.NoError(t, err)

	require.Len(t, ch, 1)
	assert.Equal(t, store.Change{URI: artwork.ContentURI(testAuthority)}, <-ch)
}

func TestAddArtwork_ReturnsAddressesInOrder(t *testing.T) {
	p := createTestProvider(t, &loadHooks{})
	ctx, _ := testutil.Context()

	uris, err := p.AddArtwork(ctx, testutil.Artwork("a", "A"), testutil.Artwork("b", "B"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		artwork.RowURI(testAuthority, 1),
		artwork.RowURI(testAuthority, 2),
	}, uris)

	last, err := p.LastAddedArtwork(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "b", last.Token)
}

func TestAddArtwork_ExistingTokenUpdates(t *testing.T) {
	p := createTestProvider(t, &loadHooks{})
	ctx, _ := testutil.Context()

	first, err := p.AddArtwork(ctx, testutil.Artwork("a", "A"))
	require.NoError(t, err)
	again, err := p.AddArtwork(ctx, testutil.Artwork("a", "Renamed"))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	a, err := p.Store().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", a.Title)
}

func TestUpdate_ByAddress(t *testing.T) {
	p := createTestProvider(t, &loadHooks{})
	ctx, _ := testutil.Context()

	uris, err := p.AddArtwork(ctx, testutil.Artwork("a", "A"))
	require.NoError(t, err)

	n, err := p.Update(ctx, uris[0], nil, artwork.Values{Attribution: artwork.String("CC0")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	a, err := p.Store().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "CC0", a.Attribution)
}

func TestQuery_WrongAuthority(t *testing.T) {
	p := createTestProvider(t, &loadHooks{})
	_, err := p.Query(context.Background(), "content://other", nil)
	assert.ErrorIs(t, err, ErrWrongAuthority)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Authority: "a", CacheDir: t.TempDir(), FilesDir: t.TempDir()}, nil)
	assert.Error(t, err)

	_, err = New(Config{CacheDir: t.TempDir(), FilesDir: t.TempDir()}, &loadHooks{})
	assert.Error(t, err)

	_, err = New(Config{Authority: "a"}, &loadHooks{})
	assert.Error(t, err)
}

func TestContentURI(t *testing.T) {
	p := createTestProvider(t, &loadHooks{})
	uri, err := p.ContentURI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "content://"+testAuthority, uri)
	assert.Equal(t, testAuthority, p.Authority())
}
