package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filter"
)

// InsertOutcome says what Insert did with the given artwork.
type InsertOutcome int

const (
	// Created means a new row was added.
	Created InsertOutcome = iota + 1
	// Updated means a row with the same token existed and its visible
	// fields were replaced.
	Updated
	// Refreshed means a row with the same token and identical visible
	// fields existed; only its modification time moved.
	Refreshed
)

func (o InsertOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Refreshed:
		return "refreshed"
	default:
		return fmt.Sprintf("InsertOutcome(%d)", int(o))
	}
}

// InsertResult identifies the row an Insert landed on.
type InsertResult struct {
	ID      int64
	URI     string
	Outcome InsertOutcome
}

// Tx is one write transaction. Its methods must only be used inside the
// callback that received it, and the Store must not be used from there.
type Tx struct {
	s     *Store
	tx    *sql.Tx
	batch bool

	changes []string
	seen    map[string]struct{}

	// doomed are deleted rows whose files go once the transaction commits.
	doomed []artwork.Artwork
}

// Batch runs fn in a single transaction. Any error from fn rolls back every
// operation of the batch, including the removal of deleted rows' files.
//
// Change announcements made inside a batch are coalesced to the collection
// address and delivered once after the batch ends, whether it committed or
// not.
func (s *Store) Batch(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, batch bool, fn func(tx *Tx) error) error {
	t, err := s.begin(ctx, batch)
	if err != nil {
		return err
	}

	err = t.commit(fn)
	if err == nil {
		for _, a := range t.doomed {
			s.removeData(a)
		}
	}
	if err == nil || batch {
		for _, uri := range t.changes {
			s.notifier.Notify(uri)
		}
	}
	return err
}

// begin takes the write lock. commit releases it.
func (s *Store) begin(ctx context.Context, batch bool) (*Tx, error) {
	s.writeMu.Lock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.writeMu.Unlock()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{s: s, tx: tx, batch: batch, seen: map[string]struct{}{}}, nil
}

// commit runs fn and commits. The transaction is rolled back and the write
// lock released on every other path, a panic in fn included.
func (t *Tx) commit(fn func(tx *Tx) error) error {
	defer t.s.writeMu.Unlock()

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := t.tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.s.logger.Warn("rollback failed", "error", rbErr)
		}
	}()

	if err := fn(t); err != nil {
		return err
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// record queues a change announcement for uri.
func (t *Tx) record(uri string) {
	if t.batch {
		uri = t.s.ContentURI()
	}
	if _, ok := t.seen[uri]; ok {
		return
	}
	t.seen[uri] = struct{}{}
	t.changes = append(t.changes, uri)
}

// Stamp issues a modification timestamp. Every write issued after it
// carries a strictly later one.
func (t *Tx) Stamp(ctx context.Context) int64 {
	return t.s.stamps.Next(ctx)
}

// Query is Store.Query inside the transaction.
func (t *Tx) Query(ctx context.Context, sel Selector, pred filter.Predicate, order ...filter.Order) (*Rows, error) {
	return query(ctx, t.tx, sel, pred, order)
}

// Get is Store.Get inside the transaction.
func (t *Tx) Get(ctx context.Context, id int64) (artwork.Artwork, error) {
	return get(ctx, t.tx, id)
}

// Insert adds a, deduplicating by token.
//
// When a row with the same (normalised) token exists and all its visible
// fields equal a's, only its modification time is refreshed and no change
// is announced. When they differ the row is updated in place. Otherwise a
// new row is created and assigned its cache file path.
func (t *Tx) Insert(ctx context.Context, a artwork.Artwork) (InsertResult, error) {
	a.Token = artwork.NormalizeToken(a.Token)

	if a.Token != "" {
		existing, err := t.byToken(ctx, a.Token)
		switch {
		case err == nil:
			return t.upsert(ctx, existing, a)
		case !errors.Is(err, ErrNotFound):
			return InsertResult{}, err
		}
	}

	now := t.Stamp(ctx)
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO artwork
		(token, title, byline, attribution, persistent_uri, web_uri, metadata, date_added, date_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullable(a.Token),
		nullable(a.Title),
		nullable(a.Byline),
		nullable(a.Attribution),
		nullable(a.PersistentURI),
		nullable(a.WebURI),
		nullable(a.Metadata),
		now,
		now,
	)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert artwork: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert artwork: %w", err)
	}

	path, err := t.s.dataPath(id, a.HasPersistentURI())
	if err != nil {
		return InsertResult{}, fmt.Errorf("assign data path for artwork %d: %w", id, err)
	}
	if _, err := t.tx.ExecContext(ctx, "UPDATE artwork SET _data = ? WHERE _id = ?", path, id); err != nil {
		return InsertResult{}, fmt.Errorf("assign data path for artwork %d: %w", id, err)
	}

	uri := artwork.RowURI(t.s.authority, id)
	t.record(uri)
	return InsertResult{ID: id, URI: uri, Outcome: Created}, nil
}

func (t *Tx) upsert(ctx context.Context, existing, a artwork.Artwork) (InsertResult, error) {
	uri := artwork.RowURI(t.s.authority, existing.ID)

	if existing.SameVisible(a) {
		now := t.Stamp(ctx)
		if _, err := t.tx.ExecContext(ctx, "UPDATE artwork SET date_modified = ? WHERE _id = ?", now, existing.ID); err != nil {
			return InsertResult{}, fmt.Errorf("refresh artwork %d: %w", existing.ID, err)
		}
		t.s.logger.Debug("artwork unchanged, refreshed", "id", existing.ID, "token", a.Token)
		return InsertResult{ID: existing.ID, URI: uri, Outcome: Refreshed}, nil
	}

	if _, err := t.Update(ctx, Row(existing.ID), nil, a.Values()); err != nil {
		return InsertResult{}, err
	}
	return InsertResult{ID: existing.ID, URI: uri, Outcome: Updated}, nil
}

func (t *Tx) byToken(ctx context.Context, token string) (artwork.Artwork, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM artwork WHERE token = ?", token)
	a, err := scanArtwork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return artwork.Artwork{}, ErrNotFound
	}
	if err != nil {
		return artwork.Artwork{}, fmt.Errorf("lookup token: %w", err)
	}
	return a, nil
}

// Update applies v to the rows matched by sel and pred and returns how many
// changed. Token, data path and date added are immutable and silently
// ignored; the modification time is always set to now.
func (t *Tx) Update(ctx context.Context, sel Selector, pred filter.Predicate, v artwork.Values) (int64, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value *string) {
		if value == nil {
			return
		}
		sets = append(sets, column+" = ?")
		args = append(args, nullable(*value))
	}
	set(artwork.ColumnTitle, v.Title)
	set(artwork.ColumnByline, v.Byline)
	set(artwork.ColumnAttribution, v.Attribution)
	set(artwork.ColumnPersistentURI, v.PersistentURI)
	set(artwork.ColumnWebURI, v.WebURI)
	set(artwork.ColumnMetadata, v.Metadata)
	sets = append(sets, artwork.ColumnDateModified+" = ?")
	args = append(args, t.Stamp(ctx))

	where, whereArgs, err := whereClause(sel, pred)
	if err != nil {
		return 0, fmt.Errorf("update artwork: %w", err)
	}

	res, err := t.tx.ExecContext(ctx,
		"UPDATE artwork SET "+strings.Join(sets, ", ")+" WHERE "+where,
		append(args, whereArgs...)...,
	)
	if err != nil {
		return 0, fmt.Errorf("update artwork: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update artwork: %w", err)
	}
	if n > 0 {
		t.record(sel.URI(t.s.authority))
	}
	return n, nil
}

// Delete removes the rows matched by sel and pred and returns how many were
// removed. Their cache files are removed after the transaction commits and
// stay on disk if it rolls back.
func (t *Tx) Delete(ctx context.Context, sel Selector, pred filter.Predicate) (int64, error) {
	rows, err := t.Query(ctx, sel, pred)
	if err != nil {
		return 0, fmt.Errorf("delete artwork: %w", err)
	}
	doomed, err := rows.Collect()
	if err != nil {
		return 0, fmt.Errorf("delete artwork: %w", err)
	}
	t.doomed = append(t.doomed, doomed...)

	where, args, err := whereClause(sel, pred)
	if err != nil {
		return 0, fmt.Errorf("delete artwork: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, "DELETE FROM artwork WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete artwork: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete artwork: %w", err)
	}
	if n > 0 {
		t.record(sel.URI(t.s.authority))
	}
	return n, nil
}

// removeData deletes a's cache file if one exists. Failures are logged and
// do not stop the delete.
func (s *Store) removeData(a artwork.Artwork) {
	if a.Data == "" {
		return
	}
	if err := s.remove(a.Data); err != nil {
		s.logger.Warn("failed to remove artwork file", "id", a.ID, "path", a.Data, "error", err)
	}
}

// Insert adds a outside of a batch. See Tx.Insert.
func (s *Store) Insert(ctx context.Context, a artwork.Artwork) (InsertResult, error) {
	var res InsertResult
	err := s.run(ctx, false, func(tx *Tx) error {
		var err error
		res, err = tx.Insert(ctx, a)
		return err
	})
	return res, err
}

// Update changes rows outside of a batch. See Tx.Update.
func (s *Store) Update(ctx context.Context, sel Selector, pred filter.Predicate, v artwork.Values) (int64, error) {
	var n int64
	err := s.run(ctx, false, func(tx *Tx) error {
		var err error
		n, err = tx.Update(ctx, sel, pred, v)
		return err
	})
	return n, err
}

// Delete removes rows outside of a batch. See Tx.Delete.
func (s *Store) Delete(ctx context.Context, sel Selector, pred filter.Predicate) (int64, error) {
	var n int64
	err := s.run(ctx, false, func(tx *Tx) error {
		var err error
		n, err = tx.Delete(ctx, sel, pred)
		return err
	})
	return n, err
}
