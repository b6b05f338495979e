package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testSchema = []string{
	`CREATE TABLE teams (
		team_id   TEXT PRIMARY KEY,
		team_name TEXT NOT NULL
	)`,
	`CREATE TABLE records (
		record_id        INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id          TEXT NOT NULL REFERENCES teams (team_id),
		transaction_date DATE NOT NULL,
		amount           DECIMAL(12, 2) NOT NULL,
		description      TEXT
	)`,
	`INSERT INTO teams (team_id, team_name) VALUES ('T1', 'Tigers'), ('T2', 'Wolves')`,
}

const insertRecord = `INSERT INTO records (team_id, transaction_date, amount, description)
VALUES (:team_id, :transaction_date, :amount, :description)
RETURNING record_id INTO :new_record_id`

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "records.db") + "?_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range testSchema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func insertBindings(team, date string, amount string, description any) []Binding {
	return []Binding{
		Input("team_id", TypeText, team),
		Input("transaction_date", TypeDate, date),
		Input("amount", TypeDecimal, decimal.RequireFromString(amount)),
		Input("description", TypeText, description),
		Output("new_record_id", TypeInteger),
	}
}

func TestExecutorInsertThenSelectRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	exec := New(db, SQLite)

	res, err := exec.ExecuteWithBindings(ctx, insertRecord, insertBindings("T1", "2024-03-01", "12.50", "winter cup")...)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	idValue, err := res.Require("new_record_id")
	require.NoError(t, err)
	id, ok := idValue.AsInt64()
	require.True(t, ok)
	assert.Positive(t, id)

	rows, err := exec.Execute(ctx, `
		SELECT r.record_id, r.team_id, t.team_name,
		       strftime('%Y-%m-%d', r.transaction_date) AS transaction_date,
		       r.amount, r.description
		FROM records r
		JOIN teams t ON r.team_id = t.team_id
		WHERE r.record_id = :id`,
		Input("id", TypeInteger, id),
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, []string{"record_id", "team_id", "team_name", "transaction_date", "amount", "description"}, row.Columns())

	got, _ := row.Get("record_id")
	assert.True(t, IntValue(id).Equal(got))

	got, _ = row.Get("team_id")
	assert.Equal(t, "T1", got.String())

	got, _ = row.Get("team_name")
	assert.Equal(t, "Tigers", got.String())

	got, _ = row.Get("transaction_date")
	assert.Equal(t, "2024-03-01", got.String())

	got, _ = row.Get("amount")
	amount, ok := got.AsDecimal()
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.50")), "amount %s", amount)

	got, _ = row.Get("description")
	assert.Equal(t, "winter cup", got.String())
}

func TestExecutorNullColumns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	exec := New(db, SQLite)

	_, err := exec.ExecuteWithBindings(ctx, insertRecord, insertBindings("T2", "2024-04-01", "3", nil)...)
	require.NoError(t, err)

	rows, err := exec.Execute(ctx, "SELECT description FROM records")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	v, ok := rows[0].Get("description")
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestExecutorEmptyResult(t *testing.T) {
	db := openTestDB(t)
	exec := New(db, SQLite)

	rows, err := exec.Execute(context.Background(), "SELECT * FROM records WHERE team_id = :team_id", Input("team_id", TypeText, "nobody"))
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExecutorRowsAffected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	exec := New(db, SQLite)

	for i := 0; i < 3; i++ {
		_, err := exec.ExecuteWithBindings(ctx, insertRecord, insertBindings("T1", "2024-01-0"+fmt.Sprint(i+1), "10", "x")...)
		require.NoError(t, err)
	}

	res, err := exec.ExecuteWithBindings(ctx, "UPDATE records SET description = :description WHERE team_id = :team_id",
		Input("description", TypeText, "updated"),
		Input("team_id", TypeText, "T1"),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsAffected)
	assert.Empty(t, res.Outputs())

	res, err = exec.ExecuteWithBindings(ctx, "DELETE FROM records WHERE record_id = :record_id", Input("record_id", TypeInteger, int64(999)))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RowsAffected)
}

func TestExecuteWithBindingsReturnsRowsForQueries(t *testing.T) {
	db := openTestDB(t)
	exec := New(db, SQLite)

	res, err := exec.ExecuteWithBindings(context.Background(), "SELECT team_id FROM teams ORDER BY team_id")
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(2), res.RowsAffected)
}

func TestExecutorOutputNotProduced(t *testing.T) {
	db := openTestDB(t)
	exec := New(db, SQLite)

	res, err := exec.ExecuteWithBindings(context.Background(),
		"UPDATE records SET amount = amount WHERE record_id = :record_id RETURNING record_id INTO :touched_id",
		Input("record_id", TypeInteger, int64(42)),
		Output("touched_id", TypeInteger),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RowsAffected)

	_, ok := res.Output("touched_id")
	assert.False(t, ok)

	_, err = res.Require("touched_id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoValueProduced)

	var noValue *NoValueProducedError
	require.ErrorAs(t, err, &noValue)
	assert.Equal(t, "touched_id", noValue.Name)

	var dbErr *DatabaseError
	assert.False(t, errors.As(err, &dbErr))
}

func TestExecuteRejectsOutputBindings(t *testing.T) {
	db := openTestDB(t)
	exec := New(db, SQLite)

	_, err := exec.Execute(context.Background(), insertRecord, insertBindings("T1", "2024-03-01", "1", "x")...)

	var cErr *ConstructionError
	require.ErrorAs(t, err, &cErr)
	assert.Zero(t, db.Stats().InUse)
}

func TestExecutorConstraintViolation(t *testing.T) {
	db := openTestDB(t)
	exec := New(db, SQLite)

	_, err := exec.ExecuteWithBindings(context.Background(), insertRecord, insertBindings("missing-team", "2024-03-01", "1", "x")...)
	require.Error(t, err)

	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Contains(t, dbErr.Message, "FOREIGN KEY")
	assert.NotZero(t, dbErr.NativeCode)
	assert.NotNil(t, errors.Unwrap(dbErr))
}

func TestExecutorReleasesConnectionsOnFailure(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	db.SetMaxOpenConns(1)
	exec := New(db, SQLite)

	for i := 0; i < 10; i++ {
		_, err := exec.Execute(ctx, "SELECT * FROM no_such_table WHERE id = :id", Input("id", TypeInteger, i))

		var dbErr *DatabaseError
		require.ErrorAs(t, err, &dbErr)
		assert.NotEmpty(t, dbErr.Message)
	}
	assert.Zero(t, db.Stats().InUse)

	// With a single connection a leak above would block here.
	rows, err := exec.Execute(ctx, "SELECT COUNT(*) AS n FROM teams")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

// The third row raises "integer overflow" after two rows were already read.
const failOnThirdRow = `WITH RECURSIVE seq(n) AS (
	SELECT 1 UNION ALL SELECT n + 1 FROM seq WHERE n < 5
)
SELECT CASE WHEN n = 3 THEN abs(-9223372036854775807 - 1) ELSE n END AS v FROM seq`

func TestExecutorDiscardsRowsOnIterationFailure(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	db.SetMaxOpenConns(1)
	exec := New(db, SQLite)

	rows, err := exec.Execute(ctx, failOnThirdRow)
	assert.Nil(t, rows)
	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Contains(t, dbErr.Message, "overflow")

	res, err := exec.ExecuteWithBindings(ctx, failOnThirdRow)
	assert.Nil(t, res)
	require.ErrorAs(t, err, &dbErr)

	assert.Zero(t, db.Stats().InUse)

	rows, err = exec.Execute(ctx, "SELECT COUNT(*) AS n FROM teams")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestExecutorClosedDatabase(t *testing.T) {
	db := openTestDB(t)
	exec := New(db, SQLite)
	require.NoError(t, db.Close())

	for i := 0; i < 3; i++ {
		_, err := exec.Execute(context.Background(), "SELECT 1")

		var dbErr *DatabaseError
		require.ErrorAs(t, err, &dbErr)
		assert.ErrorIs(t, err, ErrDatabaseClosed)
		assert.True(t, IsDatabaseClosed(err))
	}
	assert.Zero(t, db.Stats().InUse)
}

func TestExecutorCancelledContext(t *testing.T) {
	db := openTestDB(t)
	exec := New(db, SQLite)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, "SELECT * FROM teams")
	var dbErr *DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutorConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	exec := New(db, SQLite)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			team := "T1"
			if i%2 == 0 {
				team = "T2"
			}
			rows, err := exec.Execute(ctx, "SELECT team_name FROM teams WHERE team_id = :team_id", Input("team_id", TypeText, team))
			if err != nil {
				errs <- err
				return
			}
			if len(rows) != 1 {
				errs <- fmt.Errorf("team %s: got %d rows", team, len(rows))
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Zero(t, db.Stats().InUse)
}

func TestExecutorCountsStatementsIntoStats(t *testing.T) {
	db := openTestDB(t)
	exec := New(db, SQLite, WithSlowThreshold(time.Nanosecond))

	ctx, stats := WithStats(context.Background())
	_, err := exec.Execute(ctx, "SELECT team_id FROM teams")
	require.NoError(t, err)
	_, err = exec.ExecuteWithBindings(ctx, insertRecord, insertBindings("T1", "2024-01-01", "5", nil)...)
	require.NoError(t, err)
	_, err = exec.Execute(ctx, "SELECT * FROM no_such_table")
	require.Error(t, err)

	// Construction errors never reach the database.
	_, err = exec.Execute(ctx, "SELECT * FROM teams WHERE team_id = :team_id")
	require.Error(t, err)

	got := stats.Snapshot()
	assert.Equal(t, 3, got.Statements)
	assert.Equal(t, 1, got.Failures)
	assert.Equal(t, 3, got.Slow)
	assert.Positive(t, got.Elapsed)

	// Calls without Stats in the context are not counted anywhere.
	_, err = exec.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Snapshot().Statements)
	assert.Nil(t, StatsFromContext(context.Background()))
	assert.Zero(t, StatsFromContext(context.Background()).Snapshot())
}
