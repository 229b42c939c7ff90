package filter

// Predicate is a row condition.
//
// Predicate types:
//   - Equals: column = value
//   - Less: column < value
//   - IsNull: column IS NULL
//   - NotIn: column NOT IN (values...)
//   - And: all predicates must hold
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals matches rows whose column equals Value.
type Equals struct {
	Column string
	Value  any
}

func (Equals) predicateNode() {}

// Less matches rows whose column is strictly less than Value.
type Less struct {
	Column string
	Value  any
}

func (Less) predicateNode() {}

// IsNull matches rows whose column is NULL.
type IsNull struct {
	Column string
}

func (IsNull) predicateNode() {}

// NotIn matches rows whose column is not one of Values.
// An empty Values list matches every row.
type NotIn struct {
	Column string
	Values []any
}

func (NotIn) predicateNode() {}

// And is the conjunction of Predicates. An empty And matches every row.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// All combines the non-nil predicates into one. It returns nil when none
// remain, which compiles to "match everything".
func All(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
