// Package filter provides the row-selection language of the artwork store
// and its compiler to parameterised SQLite.
//
// Predicates form a sealed set: only types in this package implement
// Predicate, so the compiler's type switch is exhaustive. Column names are
// checked against the artwork column contract and values are always bound
// as parameters, never interpolated.
package filter
