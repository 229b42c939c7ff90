package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/artprovider/internal/artwork"
)

// Compile converts a predicate into a SQL boolean expression and its
// parameters. A nil predicate compiles to "1 = 1".
//
// CRITICAL: values are never interpolated; every value becomes a ? parameter.
func Compile(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case Equals:
		return compileBinary(pred.Column, "=", pred.Value)
	case *Equals:
		return compileBinary(pred.Column, "=", pred.Value)
	case Less:
		return compileBinary(pred.Column, "<", pred.Value)
	case *Less:
		return compileBinary(pred.Column, "<", pred.Value)
	case IsNull:
		return compileIsNull(pred)
	case *IsNull:
		return compileIsNull(*pred)
	case NotIn:
		return compileNotIn(pred)
	case *NotIn:
		return compileNotIn(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// CompileOrder converts order terms into an ORDER BY list (without the
// keywords). It returns "" for no terms.
func CompileOrder(orders []Order) (string, error) {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if err := checkColumn(o.Column); err != nil {
			return "", fmt.Errorf("compile order: %w", err)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, o.Column+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

func compileBinary(column, op string, value any) (string, []any, error) {
	if err := checkColumn(column); err != nil {
		return "", nil, err
	}
	if value == nil {
		return "", nil, fmt.Errorf("nil value for %s %s ?; use IsNull", column, op)
	}
	return fmt.Sprintf("%s %s ?", column, op), []any{value}, nil
}

func compileIsNull(pred IsNull) (string, []any, error) {
	if err := checkColumn(pred.Column); err != nil {
		return "", nil, err
	}
	return pred.Column + " IS NULL", nil, nil
}

func compileNotIn(pred NotIn) (string, []any, error) {
	if err := checkColumn(pred.Column); err != nil {
		return "", nil, err
	}
	if len(pred.Values) == 0 {
		return "1 = 1", nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
	params := make([]any, len(pred.Values))
	copy(params, pred.Values)
	return fmt.Sprintf("%s NOT IN (%s)", pred.Column, placeholders), params, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := Compile(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, "("+sql+")")
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

func checkColumn(column string) error {
	if !artwork.IsColumn(column) {
		return fmt.Errorf("unknown column %q", column)
	}
	return nil
}
