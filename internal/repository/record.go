package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/recordkeeper/internal/model/record"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
	"github.com/deppfellow/recordkeeper/internal/sqlfilter"
)

// RecordRepository runs the record statements. Dates are rendered as text by
// the database so every backend returns the same shape.
type RecordRepository struct {
	db      Querier
	timeout time.Duration
}

// NewRecordRepository binds the repository to db. A positive timeout bounds
// every statement.
func NewRecordRepository(db Querier, timeout time.Duration) *RecordRepository {
	return &RecordRepository{db: db, timeout: timeout}
}

func (r *RecordRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

func (r *RecordRepository) selectRecords(layout sqlexec.DateLayout) string {
	return fmt.Sprintf(`
SELECT
	r.record_id,
	r.team_id,
	t.team_name,
	%s AS transaction_date,
	r.amount,
	r.description
FROM
	records r
JOIN
	teams t ON r.team_id = t.team_id`, r.db.Dialect().FormatDate("r.transaction_date", layout))
}

// GetRecordByID returns the matching record joined with its team, as zero
// or one rows.
func (r *RecordRepository) GetRecordByID(ctx context.Context, recordID int64) ([]sqlexec.Row, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt := r.selectRecords(sqlexec.DateDay) + `
WHERE
	r.record_id = :id`

	rows, err := r.db.Execute(ctx, stmt, sqlexec.Input("id", sqlexec.TypeInteger, recordID))
	if err != nil {
		return nil, fmt.Errorf("failed to get record by id=%d: %w", recordID, err)
	}
	return rows, nil
}

// CreateRecord inserts a record and returns the id the database generated.
// A statement that completes without producing an id fails with an error
// matching sqlexec.ErrNoValueProduced.
func (r *RecordRepository) CreateRecord(ctx context.Context, payload *record.CreateRecordRequest) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt := `
INSERT INTO records (team_id, transaction_date, amount, description)
VALUES (:team_id, :transaction_date, :amount, :description)` +
		r.db.Dialect().ReturnGenerated("record_id", "new_record_id")

	result, err := r.db.ExecuteWithBindings(ctx, stmt,
		sqlexec.Input("team_id", sqlexec.TypeText, payload.TeamID),
		sqlexec.Input("transaction_date", sqlexec.TypeDate, payload.TransactionDate),
		sqlexec.Input("amount", sqlexec.TypeDecimal, *payload.Amount),
		sqlexec.Input("description", sqlexec.TypeText, payload.Description),
		sqlexec.Output("new_record_id", sqlexec.TypeInteger),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record for team_id=%s: %w", payload.TeamID, err)
	}

	value, err := result.Require("new_record_id")
	if err != nil {
		return 0, err
	}
	id, ok := value.AsInt64()
	if !ok {
		return 0, fmt.Errorf("generated record id %s is not an integer", value)
	}
	return id, nil
}

// UpdateRecord overwrites every column of a record and returns the number
// of rows affected.
func (r *RecordRepository) UpdateRecord(ctx context.Context, payload *record.UpdateRecordRequest) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt := `
UPDATE records
SET
	team_id = :team_id,
	transaction_date = :transaction_date,
	amount = :amount,
	description = :description
WHERE
	record_id = :record_id`

	result, err := r.db.ExecuteWithBindings(ctx, stmt,
		sqlexec.Input("team_id", sqlexec.TypeText, payload.TeamID),
		sqlexec.Input("transaction_date", sqlexec.TypeDate, payload.TransactionDate),
		sqlexec.Input("amount", sqlexec.TypeDecimal, *payload.Amount),
		sqlexec.Input("description", sqlexec.TypeText, payload.Description),
		sqlexec.Input("record_id", sqlexec.TypeInteger, payload.RecordID),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update record id=%d: %w", payload.RecordID, err)
	}
	return result.RowsAffected, nil
}

// DeleteRecord removes a record and returns the number of rows affected.
func (r *RecordRepository) DeleteRecord(ctx context.Context, recordID int64) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecuteWithBindings(ctx,
		`DELETE FROM records WHERE record_id = :record_id`,
		sqlexec.Input("record_id", sqlexec.TypeInteger, recordID),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete record id=%d: %w", recordID, err)
	}
	return result.RowsAffected, nil
}

// SearchRecords returns the records matching every filter that is set,
// ordered by transaction date. Dates in the result are rendered YYYY-MM.
// Amount filters are parsed and bound as decimals.
func (r *RecordRepository) SearchRecords(ctx context.Context, filter *record.SearchRecordsRequest) ([]sqlexec.Row, error) {
	dialect := r.db.Dialect()

	stmt, err := sqlfilter.Build(
		r.selectRecords(sqlexec.DateMonth)+`
WHERE 1 = 1`,
		" ORDER BY r.transaction_date",
		sqlfilter.Equal("r.team_id = :team_id", sqlexec.TypeText, filter.TeamID),
		sqlfilter.Equal(dialect.FormatDate("r.transaction_date", sqlexec.DateDay)+" = :transaction_date", sqlexec.TypeText, filter.TransactionDate),
		sqlfilter.Equal("r.amount >= :min_amount", sqlexec.TypeDecimal, filter.MinAmount),
		sqlfilter.Equal("r.amount <= :max_amount", sqlexec.TypeDecimal, filter.MaxAmount),
		sqlfilter.Contains("r.description LIKE :description", filter.Description),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Execute(ctx, stmt.Text, stmt.Bindings...)
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	return rows, nil
}
