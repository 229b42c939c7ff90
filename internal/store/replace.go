package store

import (
	"context"
	"fmt"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filter"
)

// InsertAll inserts every artwork in one batch. If any insert fails
// nothing is kept.
func (s *Store) InsertAll(ctx context.Context, arts []artwork.Artwork) ([]InsertResult, error) {
	var results []InsertResult
	err := s.Batch(ctx, func(tx *Tx) error {
		var err error
		results, err = insertAll(ctx, tx, arts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ReplaceAll makes arts the entire collection in one batch.
//
// Every artwork is inserted (deduplicating by token), then every row that
// was neither inserted nor touched by this call is deleted along with its
// cache file. When any insert fails nothing is deleted.
func (s *Store) ReplaceAll(ctx context.Context, arts []artwork.Artwork) ([]InsertResult, error) {
	var results []InsertResult
	err := s.Batch(ctx, func(tx *Tx) error {
		start := tx.Stamp(ctx)

		var err error
		results, err = insertAll(ctx, tx, arts)
		if err != nil {
			return err
		}

		keep := make([]any, 0, len(results))
		for _, r := range results {
			keep = append(keep, r.ID)
		}
		n, err := tx.Delete(ctx, All, filter.All(
			filter.Less{Column: artwork.ColumnDateModified, Value: start},
			filter.NotIn{Column: artwork.ColumnID, Values: keep},
		))
		if err != nil {
			return fmt.Errorf("remove replaced artwork: %w", err)
		}
		s.logger.Debug("replaced artwork", "inserted", len(results), "removed", n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func insertAll(ctx context.Context, tx *Tx, arts []artwork.Artwork) ([]InsertResult, error) {
	results := make([]InsertResult, 0, len(arts))
	for i, a := range arts {
		r, err := tx.Insert(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("insert artwork %d of %d: %w", i+1, len(arts), err)
		}
		results = append(results, r)
	}
	return results, nil
}

// URIs returns the row addresses of results, in order.
func URIs(results []InsertResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.URI)
	}
	return out
}
