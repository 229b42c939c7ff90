package testutil

import "github.com/roach88/artprovider/internal/artwork"

// Artwork returns a fetchable artwork with the given token and title.
func Artwork(token, title string) artwork.Artwork {
	return artwork.Artwork{
		Token:         token,
		Title:         title,
		Byline:        "Byline of " + title,
		PersistentURI: "https://example.com/" + token + ".jpg",
		WebURI:        "https://example.com/" + token,
	}
}
