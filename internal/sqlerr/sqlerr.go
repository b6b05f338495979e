// Package sqlerr specifically handles database driver errors.
//
// It parses cryptic error codes from the database driver and
// converts them into user-friendly messages (e.g., converting
// a "foreign key violation" into a "Bad Request" error)
package sqlerr

import (
	"fmt"
	"strings"
)

// Code is a backend-neutral error category.
type Code string

const (
	Other                Code = "other"
	ForeignKeyViolation  Code = "foreign_key_violation"
	UniqueViolation      Code = "unique_violation"
	NotNullViolation     Code = "not_null_violation"
	CheckViolation       Code = "check_violation"
	DataException        Code = "data_exception" // bad number, date or text format
	SyntaxError          Code = "syntax_error"
	UndefinedObject      Code = "undefined_object"
	ConnectionException  Code = "connection_exception"
	QueryCanceled        Code = "query_canceled"
	InsufficientResource Code = "insufficient_resources"
)

// Severity mirrors the PostgreSQL severity levels.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// Error is a database error normalized across backends.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string // SQLSTATE or the engine's native number
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Severity, e.DatabaseCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

// MapCode maps a SQLSTATE onto a Code. Whole classes are used where the
// individual codes do not matter to callers.
func MapCode(sqlState string) Code {
	switch sqlState {
	case "23503":
		return ForeignKeyViolation
	case "23505":
		return UniqueViolation
	case "23502":
		return NotNullViolation
	case "23514":
		return CheckViolation
	case "42601":
		return SyntaxError
	case "42P01", "42703", "42883":
		return UndefinedObject
	case "57014":
		return QueryCanceled
	}

	if len(sqlState) == 5 {
		switch sqlState[:2] {
		case "22":
			return DataException
		case "08":
			return ConnectionException
		case "53":
			return InsufficientResource
		}
	}
	return Other
}

// MapSeverity maps a severity string onto a Severity. Unknown values become
// SeverityError.
func MapSeverity(severity string) Severity {
	switch s := Severity(strings.ToUpper(severity)); s {
	case SeverityError, SeverityFatal, SeverityPanic, SeverityWarning,
		SeverityNotice, SeverityDebug, SeverityInfo, SeverityLog:
		return s
	default:
		return SeverityError
	}
}
