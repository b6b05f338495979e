package sqlexec

import (
	"database/sql"
	"regexp"
	"strings"
	"time"
)

var (
	// returningIntoPattern finds a trailing "INTO :a[, :b]" that follows a
	// RETURNING clause. Group 1 spans the INTO list including its leading
	// whitespace.
	returningIntoPattern = regexp.MustCompile(`(?is)\bRETURNING\b.*?(\s+INTO\s+:[A-Za-z_][A-Za-z0-9_]*(?:\s*,\s*:[A-Za-z_][A-Za-z0-9_]*)*)\s*;?\s*$`)

	placeholderNamePattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

	queryPattern = regexp.MustCompile(`(?is)^[\s(]*(select|with|values)\b`)
)

// compiled is a statement ready for the driver.
type compiled struct {
	text     string
	args     []any
	names    []string
	outputs  []Binding
	slots    map[string]any // OutputParams only
	query    bool
	returned bool // outputs come back as the first returned row
}

// Placeholders lists the placeholder names in text, in order of appearance.
// Literals, quoted identifiers, comments and ::casts are skipped.
func Placeholders(text string) []string {
	var names []string
	_, _ = rewritePlaceholders(text, func(name string) (string, error) {
		names = append(names, name)
		return ":" + name, nil
	})
	return names
}

// compile checks the placeholder/binding pairing and rewrites text into the
// dialect's native form.
func compile(d Dialect, text string, bindings []Binding) (*compiled, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewConstructionError("statement text is empty")
	}
	if d.placeholder == nil {
		return nil, NewConstructionError("no dialect configured")
	}

	byName := make(map[string]Binding, len(bindings))
	hasOutputs := false
	for _, b := range bindings {
		name := normalizeName(b.Name)
		if name == "" {
			return nil, NewConstructionError("binding with empty name")
		}
		if _, dup := byName[name]; dup {
			return nil, NewConstructionError("binding :%s declared more than once", name)
		}
		b.Name = name
		byName[name] = b
		if b.Direction == Out {
			hasOutputs = true
		}
	}

	stmt := &compiled{}
	used := make(map[string]bool, len(bindings))

	if d.outputs == OutputReturning {
		stripped, err := stmt.bindReturning(text, byName, used)
		if err != nil {
			return nil, err
		}
		if !stmt.returned && hasOutputs {
			return nil, NewConstructionError("output bindings need a trailing RETURNING ... INTO :name clause")
		}
		text = stripped
	}

	n := 0
	rewritten, err := rewritePlaceholders(text, func(name string) (string, error) {
		b, ok := byName[name]
		if !ok {
			return "", NewConstructionError("placeholder :%s has no binding", name)
		}
		if used[name] {
			return "", NewConstructionError("placeholder :%s appears more than once", name)
		}
		used[name] = true

		if b.Direction == Out {
			if d.outputs != OutputParams {
				return "", NewConstructionError("output placeholder :%s must appear in the RETURNING ... INTO list", name)
			}
			if stmt.slots == nil {
				stmt.slots = make(map[string]any)
			}
			slot := outputSlot(b.Type)
			stmt.slots[name] = slot
			stmt.outputs = append(stmt.outputs, b)
			stmt.args = append(stmt.args, sql.Named(name, sql.Out{Dest: slot}))
			return d.placeholder(0, name), nil
		}

		value, err := b.driverValue()
		if err != nil {
			return "", err
		}

		n++
		stmt.args = append(stmt.args, d.arg(name, value))
		stmt.names = append(stmt.names, name)
		return d.placeholder(n, name), nil
	})
	if err != nil {
		return nil, err
	}

	for _, b := range bindings {
		name := normalizeName(b.Name)
		if !used[name] {
			return nil, NewConstructionError("binding :%s is not referenced by the statement", name)
		}
	}

	stmt.text = rewritten
	stmt.query = !stmt.returned && len(stmt.outputs) == 0 && queryPattern.MatchString(rewritten)
	return stmt, nil
}

// bindReturning strips a trailing "RETURNING ... INTO :a, :b" list and
// records :a, :b as outputs read from the returned row.
func (stmt *compiled) bindReturning(text string, byName map[string]Binding, used map[string]bool) (string, error) {
	loc := returningIntoPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, nil
	}

	for _, m := range placeholderNamePattern.FindAllStringSubmatch(text[loc[2]:loc[3]], -1) {
		name := m[1]
		b, ok := byName[name]
		if !ok {
			return "", NewConstructionError("placeholder :%s has no binding", name)
		}
		if b.Direction != Out {
			return "", NewConstructionError("placeholder :%s in INTO list is not an output binding", name)
		}
		if used[name] {
			return "", NewConstructionError("placeholder :%s appears more than once", name)
		}
		used[name] = true
		stmt.outputs = append(stmt.outputs, b)
	}

	stmt.returned = true
	return text[:loc[2]], nil
}

// outputSlot allocates the destination a driver writes an OUT parameter into.
// Null wrappers keep "not produced" distinguishable from a zero value.
func outputSlot(t Type) any {
	switch t {
	case TypeInteger:
		return &sql.NullInt64{}
	case TypeDate:
		return &sql.NullTime{}
	default:
		return &sql.NullString{}
	}
}

// slotValue reads an OUT parameter back. ok is false when nothing was
// written.
func slotValue(slot any) (any, bool) {
	switch s := slot.(type) {
	case *sql.NullInt64:
		return s.Int64, s.Valid
	case *sql.NullTime:
		return s.Time, s.Valid
	case *sql.NullString:
		return s.String, s.Valid
	default:
		return nil, false
	}
}

// rewritePlaceholders walks text and replaces every :name token with the
// result of fn. Quoted strings, quoted identifiers, comments and PostgreSQL
// ::casts are copied verbatim.
func rewritePlaceholders(text string, fn func(name string) (string, error)) (string, error) {
	var b strings.Builder
	b.Grow(len(text) + 8)

	for i := 0; i < len(text); {
		ch := text[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`' || ch == '[':
			end := skipQuoted(text, i)
			b.WriteString(text[i:end])
			i = end

		case ch == '-' && i+1 < len(text) && text[i+1] == '-':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			b.WriteString(text[i : i+end])
			i += end

		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				b.WriteString(text[i:])
				i = len(text)
				continue
			}
			b.WriteString(text[i : i+2+end+2])
			i += 2 + end + 2

		case ch == ':' && i+1 < len(text) && text[i+1] == ':':
			b.WriteString("::")
			i += 2

		case ch == ':' && i+1 < len(text) && isIdentStart(text[i+1]) && (i == 0 || !isIdentPart(text[i-1])):
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			repl, err := fn(text[i+1 : j])
			if err != nil {
				return "", err
			}
			b.WriteString(repl)
			i = j

		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String(), nil
}

// skipQuoted returns the index just past the quoted section starting at i.
// Doubled closing quotes are treated as escapes.
func skipQuoted(text string, i int) int {
	closing := text[i]
	if closing == '[' {
		closing = ']'
	}
	j := i + 1
	for j < len(text) {
		if text[j] == closing {
			if j+1 < len(text) && text[j+1] == closing {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return len(text)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// coerce converts an output value to the binding's declared type when that
// loses nothing, e.g. a NUMERIC generated key declared TypeInteger.
func coerce(v Value, t Type) Value {
	switch t {
	case TypeInteger:
		if n, ok := v.AsInt64(); ok {
			return IntValue(n)
		}
	case TypeDecimal:
		if d, ok := v.AsDecimal(); ok {
			return DecimalValue(d)
		}
	case TypeText:
		if !v.IsNull() {
			if _, ok := v.AsString(); !ok {
				return StringValue(v.String())
			}
		}
	case TypeDate:
		if s, ok := v.AsString(); ok {
			if t, err := time.Parse(time.DateOnly, s); err == nil {
				return DateValue(t)
			}
		}
	}
	return v
}
