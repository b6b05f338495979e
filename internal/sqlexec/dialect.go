package sqlexec

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// OutputStyle is how a backend hands generated values back to the caller.
type OutputStyle uint8

const (
	// OutputReturning strips the trailing "INTO :a, :b" from a RETURNING
	// clause and reads the outputs from the first returned row.
	OutputReturning OutputStyle = iota

	// OutputParams binds output placeholders as driver OUT parameters.
	OutputParams
)

// DateLayout selects the textual form produced by Dialect.FormatDate.
type DateLayout uint8

const (
	DateDay   DateLayout = iota // YYYY-MM-DD
	DateMonth                   // YYYY-MM
)

// Dialect captures what differs between the supported backends.
type Dialect struct {
	name        string
	driver      string
	outputs     OutputStyle
	placeholder func(n int, name string) string
	arg         func(name string, v any) any
	formatDate  func(expr string, layout DateLayout) string
	returning   func(column, output string) string
}

var (
	Postgres = Dialect{
		name:        "postgres",
		driver:      "pgx",
		outputs:     OutputReturning,
		placeholder: func(n int, _ string) string { return "$" + strconv.Itoa(n) },
		arg:         func(_ string, v any) any { return v },
		formatDate: func(expr string, layout DateLayout) string {
			if layout == DateMonth {
				return "TO_CHAR(" + expr + ", 'YYYY-MM')"
			}
			return "TO_CHAR(" + expr + ", 'YYYY-MM-DD')"
		},
		returning: returningInto,
	}

	SQLite = Dialect{
		name:        "sqlite",
		driver:      "sqlite",
		outputs:     OutputReturning,
		placeholder: func(int, string) string { return "?" },
		arg:         func(_ string, v any) any { return v },
		formatDate: func(expr string, layout DateLayout) string {
			if layout == DateMonth {
				return "strftime('%Y-%m', " + expr + ")"
			}
			return "strftime('%Y-%m-%d', " + expr + ")"
		},
		returning: returningInto,
	}

	SQLServer = Dialect{
		name:        "sqlserver",
		driver:      "sqlserver",
		outputs:     OutputParams,
		placeholder: func(_ int, name string) string { return "@" + name },
		arg:         func(name string, v any) any { return sql.Named(name, v) },
		formatDate: func(expr string, layout DateLayout) string {
			if layout == DateMonth {
				return "CONVERT(varchar(7), " + expr + ", 23)"
			}
			return "CONVERT(varchar(10), " + expr + ", 23)"
		},
		returning: func(_, output string) string {
			return "; SET :" + output + " = SCOPE_IDENTITY()"
		},
	}
)

func returningInto(column, output string) string {
	return " RETURNING " + column + " INTO :" + output
}

// DialectFor resolves a configured driver name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver: %q", name)
	}
}

func (d Dialect) Name() string { return d.name }

// DriverName is the database/sql driver registered for this dialect.
func (d Dialect) DriverName() string { return d.driver }

func (d Dialect) Outputs() OutputStyle { return d.outputs }

// FormatDate wraps a date expression so the database renders it as text.
func (d Dialect) FormatDate(expr string, layout DateLayout) string {
	return d.formatDate(expr, layout)
}

// ReturnGenerated returns the suffix that makes an INSERT report the
// generated key in column through the output placeholder :output.
func (d Dialect) ReturnGenerated(column, output string) string {
	return d.returning(column, output)
}
