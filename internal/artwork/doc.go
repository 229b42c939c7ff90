// Package artwork provides the value types exchanged between an art
// provider and its host.
//
// This package contains type definitions and pure helpers only. Every other
// internal package imports artwork; artwork imports nothing internal.
//
// Key constraints:
//   - Optional text columns use the empty string for "absent"; the store
//     persists them as SQL NULL.
//   - Tokens are NFC-normalised before comparison and storage, so a token
//     that differs only in Unicode composition refers to the same artwork.
//   - Times are wall-clock at the API and epoch milliseconds in storage.
package artwork
