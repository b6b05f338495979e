// Package sqlexec runs single parameterized statements against a relational
// database and returns schema-agnostic results.
//
// Statements use colon-prefixed placeholders (:team_id). Each placeholder must
// be bound by exactly one Binding and each Binding must be referenced exactly
// once; the pairing is checked before a connection is acquired. Placeholders
// are rewritten to the dialect's native form ($1 for PostgreSQL, ? for SQLite,
// @name for SQL Server).
//
// Result rows are ordered column/value lists whose values are a small tagged
// variant (null, integer, decimal, string, date), so callers never type-switch
// on driver values.
//
// Statements may hand back generated values through output bindings:
//
//	INSERT INTO records (team_id) VALUES (:team_id)
//	RETURNING record_id INTO :new_record_id
//
// Every call acquires its own connection from the pool and releases it before
// returning, on success and on failure alike.
package sqlexec
