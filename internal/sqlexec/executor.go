package sqlexec

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
)

// Executor runs statements against a *sql.DB. It holds no per-call state and
// is safe for concurrent use.
type Executor struct {
	db      *sql.DB
	dialect Dialect
	logger  *zerolog.Logger
	slow    time.Duration
}

type Option func(*Executor)

// WithLogger sets the logger used for statement tracing.
func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSlowThreshold logs statements slower than d at warn level. Zero
// disables the check.
func WithSlowThreshold(d time.Duration) Option {
	return func(e *Executor) { e.slow = d }
}

func New(db *sql.DB, dialect Dialect, opts ...Option) *Executor {
	nop := zerolog.Nop()
	e := &Executor{db: db, dialect: dialect, logger: &nop}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Dialect() Dialect { return e.dialect }

// Execute runs a statement and returns every row it produces. A failure at
// any point, including halfway through the rows, returns no rows at all.
func (e *Executor) Execute(ctx context.Context, text string, bindings ...Binding) ([]Row, error) {
	stmt, err := compile(e.dialect, text, bindings)
	if err != nil {
		return nil, err
	}
	if len(stmt.outputs) > 0 {
		return nil, NewConstructionError("output bindings are not supported by Execute, use ExecuteWithBindings")
	}

	start := time.Now()
	rows, err := withConn(ctx, e.db, func(conn *sql.Conn) ([]Row, error) {
		return queryRows(ctx, conn, stmt)
	})
	if err != nil {
		return nil, e.failed(ctx, stmt, start, err)
	}

	e.traced(ctx, stmt, start, int64(len(rows)))
	return rows, nil
}

// ExecuteWithBindings runs a statement and reports its affected-row count and
// output values. Query statements also return their rows.
func (e *Executor) ExecuteWithBindings(ctx context.Context, text string, bindings ...Binding) (*Result, error) {
	stmt, err := compile(e.dialect, text, bindings)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := withConn(ctx, e.db, func(conn *sql.Conn) (*Result, error) {
		switch {
		case stmt.returned:
			return execReturning(ctx, conn, stmt)
		case stmt.query:
			rows, err := queryRows(ctx, conn, stmt)
			if err != nil {
				return nil, err
			}
			return &Result{Rows: rows, RowsAffected: int64(len(rows))}, nil
		default:
			return execStatement(ctx, conn, stmt)
		}
	})
	if err != nil {
		return nil, e.failed(ctx, stmt, start, err)
	}

	e.traced(ctx, stmt, start, res.RowsAffected)
	return res, nil
}

// withConn acquires a dedicated connection for the duration of fn. The
// connection goes back to the pool on every path out of fn.
func withConn[T any](ctx context.Context, db *sql.DB, fn func(*sql.Conn) (T, error)) (T, error) {
	var zero T
	conn, err := db.Conn(ctx)
	if err != nil {
		return zero, err
	}
	defer conn.Close()

	return fn(conn)
}

func queryRows(ctx context.Context, conn *sql.Conn, stmt *compiled) ([]Row, error) {
	rows, err := conn.QueryContext(ctx, stmt.text, stmt.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, dbTypes, err := describe(rows)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0)
	for rows.Next() {
		values, err := scanValues(rows, dbTypes)
		if err != nil {
			return nil, err
		}
		out = append(out, Row{columns: columns, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func execReturning(ctx context.Context, conn *sql.Conn, stmt *compiled) (*Result, error) {
	rows, err := conn.QueryContext(ctx, stmt.text, stmt.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	_, dbTypes, err := describe(rows)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for rows.Next() {
		values, err := scanValues(rows, dbTypes)
		if err != nil {
			return nil, err
		}
		if res.RowsAffected == 0 {
			for i, out := range stmt.outputs {
				if i < len(values) {
					res.setOutput(out.Name, coerce(values[i], out.Type))
				}
			}
		}
		res.RowsAffected++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func execStatement(ctx context.Context, conn *sql.Conn, stmt *compiled) (*Result, error) {
	r, err := conn.ExecContext(ctx, stmt.text, stmt.args...)
	if err != nil {
		return nil, err
	}
	affected, err := r.RowsAffected()
	if err != nil {
		return nil, err
	}

	res := &Result{RowsAffected: affected}
	for _, out := range stmt.outputs {
		if raw, ok := slotValue(stmt.slots[out.Name]); ok {
			res.setOutput(out.Name, coerce(convertValue(raw, ""), out.Type))
		}
	}
	return res, nil
}

func describe(rows *sql.Rows) ([]string, []string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, err
	}

	dbTypes := make([]string, len(columns))
	for i := range columns {
		if i < len(colTypes) && colTypes[i] != nil {
			dbTypes[i] = colTypes[i].DatabaseTypeName()
		}
	}
	return columns, dbTypes, nil
}

func scanValues(rows *sql.Rows, dbTypes []string) ([]Value, error) {
	raw := make([]any, len(dbTypes))
	ptrs := make([]any, len(dbTypes))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	values := make([]Value, len(raw))
	for i, v := range raw {
		values[i] = convertValue(v, dbTypes[i])
	}
	return values, nil
}

func (e *Executor) traced(ctx context.Context, stmt *compiled, start time.Time, rows int64) {
	elapsed := time.Since(start)
	slow := e.slow > 0 && elapsed > e.slow
	StatsFromContext(ctx).add(elapsed, slow, false)

	if slow {
		e.logger.Warn().
			Str("statement", stmt.text).
			Strs("bindings", stmt.names).
			Dur("duration", elapsed).
			Dur("threshold", e.slow).
			Msg("slow statement")
		return
	}

	e.logger.Debug().
		Str("statement", stmt.text).
		Strs("bindings", stmt.names).
		Int64("rows", rows).
		Dur("duration", elapsed).
		Msg("statement executed")
}

func (e *Executor) failed(ctx context.Context, stmt *compiled, start time.Time, err error) error {
	dbErr := newDatabaseError(err)
	elapsed := time.Since(start)
	StatsFromContext(ctx).add(elapsed, e.slow > 0 && elapsed > e.slow, true)

	e.logger.Error().
		Err(err).
		Str("statement", stmt.text).
		Strs("bindings", stmt.names).
		Str("sqlstate", dbErr.SQLState).
		Dur("duration", elapsed).
		Msg("statement failed")

	return dbErr
}
