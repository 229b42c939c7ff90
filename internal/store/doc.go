// Package store provides the SQLite-backed row store for one artwork
// provider.
//
// The store keeps a single table, artwork, with:
//   - Identity: _id (assigned at insert, never reused) and an optional
//     producer token (unique when present)
//   - Visible fields: title, byline, attribution, persistent/web URIs, metadata
//   - Bookkeeping: _data (cache file path), date_added, date_modified
//
// # Invariants
//
// Token dedup: inserting artwork whose token matches an existing row never
// creates a second row. Identical visible fields refresh date_modified only
// and announce nothing; differing fields update the row in place.
//
// Immutable columns: token, _data and date_added are set once at insert.
// Update ignores them.
//
// Monotonic stamps: every write stamps date_modified with a value strictly
// greater than any previous stamp, even when the wall clock stalls or steps
// back. ReplaceAll relies on this to find rows older than the call.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One writer at a time, serialised by the store
//
// # Change announcements
//
// Observers register a channel and receive a Change after each write that
// touched at least one row. Single operations announce the row (insert) or
// the selection (update, delete). Batches announce the collection address
// once, after the batch ends.
package store
