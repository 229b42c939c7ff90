package provider

import (
	"context"

	"github.com/roach88/artprovider/internal/artwork"
)

// LoadRequester is the one required hook. OnLoadRequested is called when
// the host has shown all available artwork and wants more. initial is true
// when the collection is empty.
type LoadRequester interface {
	OnLoadRequested(ctx context.Context, p *Provider, initial bool) error
}

// InvalidArtworkHandler is called when a row cannot be loaded. Without it
// the row is deleted.
type InvalidArtworkHandler interface {
	OnInvalidArtwork(ctx context.Context, p *Provider, a artwork.Artwork) error
}

// Validator vets a row before its file is opened. Rows it rejects are
// handled as invalid.
type Validator interface {
	IsArtworkValid(ctx context.Context, a artwork.Artwork) bool
}

// Describer supplies the provider's current description.
type Describer interface {
	Description(ctx context.Context) string
}

// Commander offers per-artwork user commands.
type Commander interface {
	Commands(ctx context.Context, a artwork.Artwork) []artwork.UserCommand
	OnCommand(ctx context.Context, p *Provider, a artwork.Artwork, id int) error
}

// ArtworkInfoProvider returns a launchable reference with more information
// about a row. ok is false when there is none.
type ArtworkInfoProvider interface {
	ArtworkInfo(ctx context.Context, a artwork.Artwork) (info string, ok bool)
}

// ArtworkInfoOpener opens information about a row directly. Used by hosts
// older than GetArtworkInfoMinVersion.
type ArtworkInfoOpener interface {
	OpenArtworkInfo(ctx context.Context, a artwork.Artwork) bool
}

// LoadRequesterFunc adapts a function to LoadRequester.
type LoadRequesterFunc func(ctx context.Context, p *Provider, initial bool) error

func (f LoadRequesterFunc) OnLoadRequested(ctx context.Context, p *Provider, initial bool) error {
	return f(ctx, p, initial)
}
