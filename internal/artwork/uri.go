package artwork

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Scheme is the URI scheme of collection and row addresses.
const Scheme = "content"

// ErrInvalidURI is returned when a string is not an address of the expected
// provider.
var ErrInvalidURI = errors.New("invalid artwork uri")

// ContentURI returns the collection address for authority:
// content://<authority>.
func ContentURI(authority string) string {
	return Scheme + "://" + authority
}

// RowURI returns the sub-address of a single row: content://<authority>/<id>.
func RowURI(authority string, id int64) string {
	return ContentURI(authority) + "/" + strconv.FormatInt(id, 10)
}

// Address is a parsed collection or row address.
type Address struct {
	Authority string
	ID        int64 // zero for the collection address
}

// IsRow reports whether a names a single row.
func (a Address) IsRow() bool {
	return a.ID > 0
}

// String formats a back into its URI form.
func (a Address) String() string {
	if a.IsRow() {
		return RowURI(a.Authority, a.ID)
	}
	return ContentURI(a.Authority)
}

// ParseURI parses a collection or row address.
func ParseURI(raw string) (Address, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidURI, raw, err)
	}
	if u.Scheme != Scheme || u.Host == "" {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidURI, raw)
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return Address{Authority: u.Host}, nil
	}
	if strings.Contains(path, "/") {
		return Address{}, fmt.Errorf("%w: %q: unexpected path", ErrInvalidURI, raw)
	}
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil || id <= 0 {
		return Address{}, fmt.Errorf("%w: %q: bad row id", ErrInvalidURI, raw)
	}
	return Address{Authority: u.Host, ID: id}, nil
}

// ParseID returns the row id named by a row address.
func ParseID(raw string) (int64, error) {
	addr, err := ParseURI(raw)
	if err != nil {
		return 0, err
	}
	if !addr.IsRow() {
		return 0, fmt.Errorf("%w: %q: not a row address", ErrInvalidURI, raw)
	}
	return addr.ID, nil
}
