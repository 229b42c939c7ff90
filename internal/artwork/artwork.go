package artwork

import "time"

// Artwork is one row of a provider's collection.
//
// ID, Data and DateAdded are assigned by the store at insert time and never
// change afterwards. Token is immutable as well: re-inserting an artwork with
// the same token updates the existing row instead of creating a new one.
type Artwork struct {
	ID            int64     `json:"id,omitempty" yaml:"id,omitempty" cbor:"id,omitempty"`
	Token         string    `json:"token,omitempty" yaml:"token,omitempty" cbor:"token,omitempty"`
	Title         string    `json:"title,omitempty" yaml:"title,omitempty" cbor:"title,omitempty"`
	Byline        string    `json:"byline,omitempty" yaml:"byline,omitempty" cbor:"byline,omitempty"`
	Attribution   string    `json:"attribution,omitempty" yaml:"attribution,omitempty" cbor:"attribution,omitempty"`
	PersistentURI string    `json:"persistent_uri,omitempty" yaml:"persistent_uri,omitempty" cbor:"persistent_uri,omitempty"`
	WebURI        string    `json:"web_uri,omitempty" yaml:"web_uri,omitempty" cbor:"web_uri,omitempty"`
	Metadata      string    `json:"metadata,omitempty" yaml:"metadata,omitempty" cbor:"metadata,omitempty"`
	Data          string    `json:"data,omitempty" yaml:"-" cbor:"data,omitempty"`
	DateAdded     time.Time `json:"date_added,omitempty" yaml:"-" cbor:"date_added,omitempty"`
	DateModified  time.Time `json:"date_modified,omitempty" yaml:"-" cbor:"date_modified,omitempty"`
}

// HasPersistentURI reports whether the artwork's image can be re-fetched.
// Cache files of artwork without one live in durable storage and are never
// evicted.
func (a Artwork) HasPersistentURI() bool {
	return a.PersistentURI != ""
}

// SameVisible reports whether a and b agree on every producer-visible field:
// title, byline, attribution, persistent URI, web URI and metadata.
// Identity and bookkeeping fields (ID, Token, Data, dates) are ignored.
func (a Artwork) SameVisible(b Artwork) bool {
	return a.Title == b.Title &&
		a.Byline == b.Byline &&
		a.Attribution == b.Attribution &&
		a.PersistentURI == b.PersistentURI &&
		a.WebURI == b.WebURI &&
		a.Metadata == b.Metadata
}

// Values returns the producer-visible fields of a as a full Values set.
// Fields that are empty are included as explicit empty strings so an update
// built from them clears the stored column.
func (a Artwork) Values() Values {
	return Values{
		Title:         String(a.Title),
		Byline:        String(a.Byline),
		Attribution:   String(a.Attribution),
		PersistentURI: String(a.PersistentURI),
		WebURI:        String(a.WebURI),
		Metadata:      String(a.Metadata),
	}
}

// Values is a partial set of columns for an update. A nil field is left
// untouched; a non-nil empty string clears the column.
//
// Token, Data and DateAdded exist so callers can express them, but the store
// strips them from every update: those columns are immutable.
type Values struct {
	Token         *string    `json:"token,omitempty" cbor:"token,omitempty"`
	Title         *string    `json:"title,omitempty" cbor:"title,omitempty"`
	Byline        *string    `json:"byline,omitempty" cbor:"byline,omitempty"`
	Attribution   *string    `json:"attribution,omitempty" cbor:"attribution,omitempty"`
	PersistentURI *string    `json:"persistent_uri,omitempty" cbor:"persistent_uri,omitempty"`
	WebURI        *string    `json:"web_uri,omitempty" cbor:"web_uri,omitempty"`
	Metadata      *string    `json:"metadata,omitempty" cbor:"metadata,omitempty"`
	Data          *string    `json:"data,omitempty" cbor:"data,omitempty"`
	DateAdded     *time.Time `json:"date_added,omitempty" cbor:"date_added,omitempty"`
}

// IsEmpty reports whether no mutable column is set.
func (v Values) IsEmpty() bool {
	return v.Title == nil && v.Byline == nil && v.Attribution == nil &&
		v.PersistentURI == nil && v.WebURI == nil && v.Metadata == nil
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
