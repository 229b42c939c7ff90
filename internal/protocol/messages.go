package protocol

import (
	"fmt"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/filter"
	"github.com/roach88/artprovider/internal/provider"
	"github.com/roach88/artprovider/internal/store"
)

// Action names.
const (
	ActionCall       = "call"
	ActionQuery      = "query"
	ActionInsert     = "insert"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionAdd        = "add"
	ActionSet        = "set"
	ActionLastAdded  = "last_added"
	ActionContentURI = "content_uri"
	ActionOpen       = "open"
)

// Condition operators.
const (
	OpEquals = "="
	OpLess   = "<"
	OpIsNull = "is_null"
	OpNotIn  = "not_in"
)

// Condition is one row condition on the wire. All conditions of a request
// must hold.
type Condition struct {
	Column string `cbor:"column" json:"column"`
	Op     string `cbor:"op" json:"op"`
	Value  any    `cbor:"value,omitempty" json:"value,omitempty"`
	Values []any  `cbor:"values,omitempty" json:"values,omitempty"`
}

// OrderTerm is one sort key on the wire.
type OrderTerm struct {
	Column string `cbor:"column" json:"column"`
	Desc   bool   `cbor:"desc,omitempty" json:"desc,omitempty"`
}

// Predicate converts wire conditions into a filter predicate.
func Predicate(conds []Condition) (filter.Predicate, error) {
	preds := make([]filter.Predicate, 0, len(conds))
	for _, c := range conds {
		switch c.Op {
		case OpEquals:
			preds = append(preds, filter.Equals{Column: c.Column, Value: c.Value})
		case OpLess:
			preds = append(preds, filter.Less{Column: c.Column, Value: c.Value})
		case OpIsNull:
			preds = append(preds, filter.IsNull{Column: c.Column})
		case OpNotIn:
			preds = append(preds, filter.NotIn{Column: c.Column, Values: c.Values})
		default:
			return nil, fmt.Errorf("unknown operator %q on column %q", c.Op, c.Column)
		}
	}
	return filter.All(preds...), nil
}

// Orders converts wire sort keys into filter orders.
func Orders(terms []OrderTerm) []filter.Order {
	out := make([]filter.Order, 0, len(terms))
	for _, t := range terms {
		out = append(out, filter.Order{Column: t.Column, Desc: t.Desc})
	}
	return out
}

type callRequest struct {
	Method string           `cbor:"method"`
	Arg    string           `cbor:"arg,omitempty"`
	Extras *provider.Extras `cbor:"extras,omitempty"`
}

type selectRequest struct {
	URI   string      `cbor:"uri"`
	Where []Condition `cbor:"where,omitempty"`
	Order []OrderTerm `cbor:"order,omitempty"`
}

type insertRequest struct {
	Artwork artwork.Artwork `cbor:"artwork"`
}

type updateRequest struct {
	URI    string         `cbor:"uri"`
	Where  []Condition    `cbor:"where,omitempty"`
	Values artwork.Values `cbor:"values"`
}

type artworkListRequest struct {
	Artwork []artwork.Artwork `cbor:"artwork"`
}

type openRequest struct {
	URI  string `cbor:"uri"`
	Mode string `cbor:"mode,omitempty"`
}

type queryResponse struct {
	Artwork []artwork.Artwork `cbor:"artwork"`
}

// InsertResponse reports where an inserted artwork landed.
type InsertResponse struct {
	ID      int64  `cbor:"id" json:"id"`
	URI     string `cbor:"uri" json:"uri"`
	Outcome string `cbor:"outcome" json:"outcome"`
}

func insertResponse(r store.InsertResult) InsertResponse {
	return InsertResponse{ID: r.ID, URI: r.URI, Outcome: r.Outcome.String()}
}

type countResponse struct {
	Count int64 `cbor:"count"`
}

type urisResponse struct {
	URIs []string `cbor:"uris"`
}

type lastAddedResponse struct {
	Artwork *artwork.Artwork `cbor:"artwork,omitempty"`
}

type uriResponse struct {
	URI string `cbor:"uri"`
}

type openResponse struct {
	Path string `cbor:"path"`
}
