package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filter"
)

// Selector addresses either the whole collection or a single row.
type Selector struct {
	id int64
}

// All selects every row of the collection.
var All = Selector{}

// Row selects the row with the given id.
func Row(id int64) Selector {
	return Selector{id: id}
}

// SelectorFor converts a parsed address into a selector.
func SelectorFor(addr artwork.Address) Selector {
	return Selector{id: addr.ID}
}

// IsRow reports whether s narrows to one row.
func (s Selector) IsRow() bool {
	return s.id > 0
}

// ID returns the selected row id, or 0 for the collection.
func (s Selector) ID() int64 {
	return s.id
}

// URI returns the address of the selection.
func (s Selector) URI(authority string) string {
	if s.IsRow() {
		return artwork.RowURI(authority, s.id)
	}
	return artwork.ContentURI(authority)
}

// DefaultOrder is used when a query names no order: newest first.
var DefaultOrder = []filter.Order{filter.Desc(artwork.ColumnDateAdded), filter.Desc(artwork.ColumnID)}

const selectColumns = `_id, token, title, byline, attribution, persistent_uri, web_uri, metadata, _data, date_added, date_modified`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Rows iterates query results. It must be closed.
type Rows struct {
	rows    *sql.Rows
	current artwork.Artwork
	err     error
}

// Next advances to the next row.
func (r *Rows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	a, err := scanArtwork(r.rows)
	if err != nil {
		r.err = err
		return false
	}
	r.current = a
	return true
}

// Artwork returns the current row.
func (r *Rows) Artwork() artwork.Artwork {
	return r.current
}

// Err returns the first error encountered while iterating.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	if err := r.rows.Err(); err != nil {
		return fmt.Errorf("iterate artwork: %w", err)
	}
	return nil
}

// Close releases the result set.
func (r *Rows) Close() error {
	return r.rows.Close()
}

// All returns an iterator over the remaining rows. A scan error is yielded
// once and ends iteration.
func (r *Rows) All() iter.Seq2[artwork.Artwork, error] {
	return func(yield func(artwork.Artwork, error) bool) {
		for r.Next() {
			if !yield(r.current, nil) {
				return
			}
		}
		if err := r.Err(); err != nil {
			yield(artwork.Artwork{}, err)
		}
	}
}

// Collect drains and closes r.
// Returns an empty slice (not nil) when there are no rows.
func (r *Rows) Collect() ([]artwork.Artwork, error) {
	defer r.Close()

	out := []artwork.Artwork{}
	for r.Next() {
		out = append(out, r.current)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Query returns the rows matched by sel and pred in the given order, or
// DefaultOrder when none is given.
func (s *Store) Query(ctx context.Context, sel Selector, pred filter.Predicate, order ...filter.Order) (*Rows, error) {
	return query(ctx, s.db, sel, pred, order)
}

// Get returns the row with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (artwork.Artwork, error) {
	return get(ctx, s.db, id)
}

// LastAdded returns the most recently added row, or nil when the collection
// is empty.
func (s *Store) LastAdded(ctx context.Context) (*artwork.Artwork, error) {
	rows, err := s.Query(ctx, All, nil, DefaultOrder...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	a := rows.Artwork()
	return &a, nil
}

func query(ctx context.Context, q querier, sel Selector, pred filter.Predicate, order []filter.Order) (*Rows, error) {
	where, args, err := whereClause(sel, pred)
	if err != nil {
		return nil, fmt.Errorf("query artwork: %w", err)
	}
	if len(order) == 0 {
		order = DefaultOrder
	}
	orderBy, err := filter.CompileOrder(order)
	if err != nil {
		return nil, fmt.Errorf("query artwork: %w", err)
	}

	stmt := "SELECT " + selectColumns + " FROM artwork WHERE " + where + " ORDER BY " + orderBy
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query artwork: %w", err)
	}
	return &Rows{rows: rows}, nil
}

func get(ctx context.Context, q querier, id int64) (artwork.Artwork, error) {
	row := q.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM artwork WHERE _id = ?", id)
	a, err := scanArtwork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return artwork.Artwork{}, fmt.Errorf("get artwork %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return artwork.Artwork{}, fmt.Errorf("get artwork %d: %w", id, err)
	}
	return a, nil
}

// whereClause combines the selector's id restriction with pred.
func whereClause(sel Selector, pred filter.Predicate) (string, []any, error) {
	if sel.IsRow() {
		pred = filter.All(filter.Equals{Column: artwork.ColumnID, Value: sel.id}, pred)
	}
	return filter.Compile(pred)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtwork(row rowScanner) (artwork.Artwork, error) {
	var (
		a                                     artwork.Artwork
		token, title, byline, attribution     sql.NullString
		persistentURI, webURI, metadata, data sql.NullString
		dateAdded, dateModified               int64
	)
	err := row.Scan(
		&a.ID,
		&token,
		&title,
		&byline,
		&attribution,
		&persistentURI,
		&webURI,
		&metadata,
		&data,
		&dateAdded,
		&dateModified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan artwork: %w", err)
	}
	a.Token = token.String
	a.Title = title.String
	a.Byline = byline.String
	a.Attribution = attribution.String
	a.PersistentURI = persistentURI.String
	a.WebURI = webURI.String
	a.Metadata = metadata.String
	a.Data = data.String
	a.DateAdded = fromMillis(dateAdded)
	a.DateModified = fromMillis(dateModified)
	return a, nil
}

// nullable maps "" to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
