// Package sqlfilter composes a WHERE clause from optional predicates.
//
// The base statement must already end in a WHERE clause that accepts extra
// conditions, typically "WHERE 1 = 1". Each present predicate appends
// " AND <fragment>" and one input binding; absent predicates leave no trace in
// either the text or the bindings. Caller-supplied values only ever travel as
// bindings.
package sqlfilter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/deppfellow/recordkeeper/internal/sqlexec"
)

// Match controls how a predicate's value is bound.
type Match uint8

const (
	// MatchExact binds the value unchanged.
	MatchExact Match = iota

	// MatchContains wraps the value in % wildcards for LIKE.
	MatchContains
)

// Predicate is an optional condition. Fragment holds exactly one :name
// placeholder, e.g. "r.amount >= :min_amount".
type Predicate struct {
	Fragment string
	Type     sqlexec.Type
	Value    any
	Match    Match
}

// Equal returns a predicate that binds value converted to typ, so decimal text
// travels as a decimal.Decimal.
func Equal(fragment string, typ sqlexec.Type, value any) Predicate {
	return Predicate{Fragment: fragment, Type: typ, Value: value, Match: MatchExact}
}

// Contains returns a substring predicate; fragment should use LIKE.
func Contains(fragment string, value any) Predicate {
	return Predicate{Fragment: fragment, Type: sqlexec.TypeText, Value: value, Match: MatchContains}
}

// Present reports whether the predicate takes part in the statement. Nil
// values, nil pointers of any type and empty strings are absent.
func (p Predicate) Present() bool {
	v := deref(p.Value)
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// deref follows pointers until it reaches a value, returning nil for a nil
// pointer anywhere on the way.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func (p Predicate) boundValue() (any, error) {
	v := deref(p.Value)
	if p.Match == MatchContains {
		return "%" + fmt.Sprint(v) + "%", nil
	}
	return sqlexec.ConvertInput(p.Type, v)
}

// Statement is composed text plus the bindings it references.
type Statement struct {
	Text     string
	Bindings []sqlexec.Binding
}

// Build appends every present predicate to base, in order, followed by order.
// It fails with a *sqlexec.ConstructionError when a fragment does not carry
// exactly one placeholder, when two present predicates share a name, when a
// value does not parse as its declared type, or when base or order contain
// placeholders of their own.
func Build(base, order string, predicates ...Predicate) (Statement, error) {
	base = strings.TrimSpace(base)
	order = strings.TrimSpace(order)

	if base == "" {
		return Statement{}, sqlexec.NewConstructionError("base statement is empty")
	}
	if names := sqlexec.Placeholders(base); len(names) > 0 {
		return Statement{}, sqlexec.NewConstructionError("base statement has unbound placeholder :%s", names[0])
	}
	if names := sqlexec.Placeholders(order); len(names) > 0 {
		return Statement{}, sqlexec.NewConstructionError("order clause has unbound placeholder :%s", names[0])
	}

	var b strings.Builder
	b.WriteString(base)

	bindings := make([]sqlexec.Binding, 0, len(predicates))
	seen := make(map[string]bool, len(predicates))

	for _, p := range predicates {
		names := sqlexec.Placeholders(p.Fragment)
		if len(names) != 1 {
			return Statement{}, sqlexec.NewConstructionError("predicate %q must contain exactly one placeholder, found %d", p.Fragment, len(names))
		}
		if !p.Present() {
			continue
		}

		name := names[0]
		if seen[name] {
			return Statement{}, sqlexec.NewConstructionError("placeholder :%s used by more than one predicate", name)
		}
		seen[name] = true

		value, err := p.boundValue()
		if err != nil {
			return Statement{}, sqlexec.NewConstructionError("predicate :%s: %v", name, err)
		}

		b.WriteString(" AND ")
		b.WriteString(strings.TrimSpace(p.Fragment))
		bindings = append(bindings, sqlexec.Input(name, p.Type, value))
	}

	if order != "" {
		b.WriteByte(' ')
		b.WriteString(order)
	}

	return Statement{Text: b.String(), Bindings: bindings}, nil
}
