package provider

import (
	"context"
	"fmt"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filter"
	"github.com/roach88/artprovider/internal/store"
)

// Client is the producer-facing surface of a provider. Both *Provider and
// the socket client implement it.
type Client interface {
	ContentURI(ctx context.Context) (string, error)
	AddArtwork(ctx context.Context, arts ...artwork.Artwork) ([]string, error)
	SetArtwork(ctx context.Context, arts ...artwork.Artwork) ([]string, error)
	LastAddedArtwork(ctx context.Context) (*artwork.Artwork, error)
}

var _ Client = (*Provider)(nil)

// AddArtwork inserts arts in one batch and returns their row addresses in
// order. Artwork whose token already exists updates that row.
func (p *Provider) AddArtwork(ctx context.Context, arts ...artwork.Artwork) ([]string, error) {
	results, err := p.store.InsertAll(ctx, arts)
	if err != nil {
		return nil, fmt.Errorf("add artwork: %w", err)
	}
	return store.URIs(results), nil
}

// SetArtwork makes arts the whole collection: every row not among them is
// deleted together with its cache file. Returns the row addresses of arts
// in order. On failure the collection is unchanged.
func (p *Provider) SetArtwork(ctx context.Context, arts ...artwork.Artwork) ([]string, error) {
	results, err := p.store.ReplaceAll(ctx, arts)
	if err != nil {
		p.logger.Info("set artwork failed", "count", len(arts), "error", err)
		return nil, fmt.Errorf("set artwork: %w", err)
	}
	return store.URIs(results), nil
}

// LastAddedArtwork returns the newest row, or nil for an empty collection.
func (p *Provider) LastAddedArtwork(ctx context.Context) (*artwork.Artwork, error) {
	return p.store.LastAdded(ctx)
}

// Insert adds one artwork, deduplicating by token.
func (p *Provider) Insert(ctx context.Context, a artwork.Artwork) (store.InsertResult, error) {
	return p.store.Insert(ctx, a)
}

// Query returns the rows under uri matched by pred.
func (p *Provider) Query(ctx context.Context, uri string, pred filter.Predicate, order ...filter.Order) (*store.Rows, error) {
	addr, err := p.resolve(uri)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", uri, err)
	}
	return p.store.Query(ctx, store.SelectorFor(addr), pred, order...)
}

// Update applies v to the rows under uri matched by pred.
func (p *Provider) Update(ctx context.Context, uri string, pred filter.Predicate, v artwork.Values) (int64, error) {
	addr, err := p.resolve(uri)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", uri, err)
	}
	return p.store.Update(ctx, store.SelectorFor(addr), pred, v)
}

// Delete removes the rows under uri matched by pred along with their
// cache files.
func (p *Provider) Delete(ctx context.Context, uri string, pred filter.Predicate) (int64, error) {
	addr, err := p.resolve(uri)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", uri, err)
	}
	return p.store.Delete(ctx, store.SelectorFor(addr), pred)
}
