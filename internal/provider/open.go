package provider

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filecache"
	"github.com/roach88/artprovider/internal/store"
)

// OpenFile opens the image of the row at uri.
//
// A read-only open of a row whose file is not cached yet fetches it first.
// When the row fails validation, or the fetch fails permanently, the
// invalid-artwork hook runs and an error is returned. A recoverable fetch
// failure leaves the row alone; the caller may retry.
func (p *Provider) OpenFile(ctx context.Context, uri string, mode filecache.Mode) (*os.File, error) {
	addr, err := p.resolve(uri)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	if !addr.IsRow() {
		return nil, fmt.Errorf("open %s: %w", uri, artwork.ErrInvalidURI)
	}
	a, err := p.store.Get(ctx, addr.ID)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}

	if v, ok := p.hooks.(Validator); ok && !v.IsArtworkValid(ctx, a) {
		p.invalidate(ctx, a)
		return nil, fmt.Errorf("open %s: %w", uri, ErrInvalidArtwork)
	}

	f, err := p.cache.Open(ctx, a, mode)
	if err != nil {
		if filecache.IsRecoverable(err) {
			p.logger.Info("artwork fetch failed, will retry", "id", a.ID, "error", err)
		} else {
			p.logger.Info("artwork cannot be loaded", "id", a.ID, "error", err)
			p.invalidate(ctx, a)
		}
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	return f, nil
}

// OpenContent lets this provider serve content:// references to its own
// rows from other rows' persistent URIs.
func (p *Provider) OpenContent(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	f, err := p.OpenFile(ctx, u.String(), filecache.ModeRead)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// invalidate runs the invalid-artwork hook, or deletes the row without
// one. Failures are logged.
func (p *Provider) invalidate(ctx context.Context, a artwork.Artwork) {
	var err error
	if h, ok := p.hooks.(InvalidArtworkHandler); ok {
		err = h.OnInvalidArtwork(ctx, p, a)
	} else {
		_, err = p.store.Delete(ctx, store.Row(a.ID), nil)
	}
	if err != nil {
		p.logger.Warn("invalid artwork handling failed", "id", a.ID, "error", err)
		return
	}
	p.logger.Info("artwork marked invalid", "id", a.ID, "token", a.Token)
}
