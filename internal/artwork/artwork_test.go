package artwork

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowURI_RoundTrip(t *testing.T) {
	uri := RowURI("com.example.art", 42)
	assert.Equal(t, "content://com.example.art/42", uri)

	id, err := ParseID(uri)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseURI_Collection(t *testing.T) {
	addr, err := ParseURI("content://com.example.art")
	require.NoError(t, err)
	assert.False(t, addr.IsRow())
	assert.Equal(t, "com.example.art", addr.Authority)
	assert.Equal(t, ContentURI("com.example.art"), addr.String())
}

func TestParseURI_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"wrong scheme", "https://example.com/1"},
		{"no authority", "content:///1"},
		{"non numeric id", "content://a/abc"},
		{"zero id", "content://a/0"},
		{"nested path", "content://a/1/2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURI(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidURI))
		})
	}
}

func TestParseID_CollectionIsNotARow(t *testing.T) {
	_, err := ParseID("content://a")
	assert.ErrorIs(t, err, ErrInvalidURI)
}

func TestNormalizeToken(t *testing.T) {
	// "é" precomposed vs "e" + combining acute accent
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	assert.NotEqual(t, composed, decomposed)
	assert.Equal(t, NormalizeToken(composed), NormalizeToken(decomposed))
	assert.Equal(t, "", NormalizeToken(""))
}

func TestSameVisible(t *testing.T) {
	a := Artwork{ID: 1, Token: "a", Title: "Sunrise", PersistentURI: "https://x/1.jpg"}
	b := Artwork{ID: 2, Token: "b", Title: "Sunrise", PersistentURI: "https://x/1.jpg"}
	assert.True(t, a.SameVisible(b), "identity fields must not matter")

	b.Title = "Sunset"
	assert.False(t, a.SameVisible(b))
}

func TestValues_FromArtwork(t *testing.T) {
	v := Artwork{Title: "T", Token: "tok"}.Values()
	require.NotNil(t, v.Title)
	assert.Equal(t, "T", *v.Title)
	require.NotNil(t, v.Byline)
	assert.Equal(t, "", *v.Byline)
	assert.Nil(t, v.Token, "token is never part of an update")
	assert.False(t, v.IsEmpty())
	assert.True(t, Values{Token: String("x")}.IsEmpty())
}

func TestUserCommand_Serialize(t *testing.T) {
	tests := []struct {
		cmd  UserCommand
		want string
	}{
		{UserCommand{ID: 3, Title: "Share"}, "3:Share"},
		{UserCommand{ID: 7}, "7"},
		{UserCommand{ID: 1, Title: "a:b"}, "1:a:b"},
	}
	for _, tt := range tests {
		s := tt.cmd.Serialize()
		assert.Equal(t, tt.want, s)
		assert.Equal(t, tt.cmd, ParseUserCommand(s))
	}
}

func TestParseUserCommand_Malformed(t *testing.T) {
	assert.Equal(t, UserCommand{ID: -1}, ParseUserCommand(""))
	assert.Equal(t, UserCommand{ID: -1, Title: "x"}, ParseUserCommand("nope:x"))
}

func TestIsColumn(t *testing.T) {
	assert.True(t, IsColumn(ColumnDateModified))
	assert.False(t, IsColumn("date_modified; DROP TABLE artwork"))
}
