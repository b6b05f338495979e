package sqlexec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoValueProduced matches every *NoValueProducedError via errors.Is.
	ErrNoValueProduced = errors.New("sqlexec: no value produced")

	// ErrDatabaseClosed matches a *DatabaseError raised because the *sql.DB
	// was already closed.
	ErrDatabaseClosed = errors.New("sqlexec: database is closed")
)

// database/sql keeps its closed-pool error unexported, so the message is the
// only stable handle on it.
const closedDatabaseMessage = "sql: database is closed"

// IsDatabaseClosed reports whether err comes from using a closed *sql.DB,
// wrapped by the executor or not.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDatabaseClosed) || strings.Contains(err.Error(), closedDatabaseMessage)
}

// ConstructionError reports a statement whose placeholders and bindings do not
// pair up. It is raised before any connection is acquired.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return "sqlexec: malformed statement: " + e.Reason
}

// NewConstructionError formats a ConstructionError.
func NewConstructionError(format string, args ...any) *ConstructionError {
	return &ConstructionError{Reason: fmt.Sprintf(format, args...)}
}

// DatabaseError wraps any failure reported by the driver or the database.
//
// SQLState is set when the driver exposes one (PostgreSQL). NativeCode holds
// engine-specific numbers such as SQLite extended result codes or SQL Server
// error numbers.
type DatabaseError struct {
	Message    string
	SQLState   string
	NativeCode int
	err        error
}

func (e *DatabaseError) Error() string { return e.Message }

func (e *DatabaseError) Unwrap() error { return e.err }

func (e *DatabaseError) Is(target error) bool {
	return target == ErrDatabaseClosed && strings.Contains(e.Message, closedDatabaseMessage)
}

func newDatabaseError(err error) *DatabaseError {
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr
	}

	out := &DatabaseError{Message: err.Error(), err: err}

	var state interface{ SQLState() string }
	if errors.As(err, &state) {
		out.SQLState = state.SQLState()
	}

	// modernc.org/sqlite
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		out.NativeCode = coded.Code()
	}

	// github.com/microsoft/go-mssqldb
	var numbered interface{ SQLErrorNumber() int32 }
	if errors.As(err, &numbered) {
		out.NativeCode = int(numbered.SQLErrorNumber())
	}

	return out
}

// NoValueProducedError reports an output binding that was still unset after
// the statement ran without error.
type NoValueProducedError struct {
	Name string
}

func (e *NoValueProducedError) Error() string {
	return fmt.Sprintf("sqlexec: statement produced no value for :%s", e.Name)
}

func (e *NoValueProducedError) Is(target error) bool {
	return target == ErrNoValueProduced
}
