package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/deppfellow/recordkeeper/internal/errs"
	"github.com/deppfellow/recordkeeper/internal/model/record"
	"github.com/deppfellow/recordkeeper/internal/repository"
	"github.com/deppfellow/recordkeeper/internal/service"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
	"github.com/deppfellow/recordkeeper/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *service.RecordService {
	t.Helper()

	s := testdb.NewSQLiteServer(t)
	return service.NewServices(s, repository.NewRepositories(s)).Record
}

func createPayload(team string) *record.CreateRecordRequest {
	amount := decimal.RequireFromString("42.10")
	description := "Boots"
	return &record.CreateRecordRequest{
		TeamID:          team,
		TransactionDate: "2024-05-06",
		Amount:          &amount,
		Description:     &description,
	}
}

func requireHTTPStatus(t *testing.T, err error, status int) *errs.HTTPError {
	t.Helper()

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, status, httpErr.Status)
	return httpErr
}

func TestCreateRecord(t *testing.T) {
	svc := newService(t)

	created, err := svc.CreateRecord(context.Background(), createPayload("T1"))
	require.NoError(t, err)
	assert.Positive(t, created.RecordID)
	assert.Equal(t, "T1", created.TeamID)
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("42.1")))

	rows, err := svc.GetRecord(context.Background(), created.RecordID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUpdateAndDeleteMissingRecord(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p := createPayload("T1")
	_, err := svc.UpdateRecord(ctx, &record.UpdateRecordRequest{
		RecordID:        999,
		TeamID:          p.TeamID,
		TransactionDate: p.TransactionDate,
		Amount:          p.Amount,
	})
	httpErr := requireHTTPStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "Record to update not found", httpErr.Message)

	_, err = svc.DeleteRecord(ctx, 999)
	httpErr = requireHTTPStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "Record to delete not found", httpErr.Message)
}

func TestUpdateAndDeleteRecord(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.CreateRecord(ctx, createPayload("T1"))
	require.NoError(t, err)

	msg, err := svc.UpdateRecord(ctx, &record.UpdateRecordRequest{
		RecordID:        created.RecordID,
		TeamID:          "T2",
		TransactionDate: "2024-06-01",
		Amount:          &created.Amount,
	})
	require.NoError(t, err)
	assert.Equal(t, service.RecordUpdatedMessage, msg.Message)

	msg, err = svc.DeleteRecord(ctx, created.RecordID)
	require.NoError(t, err)
	assert.Equal(t, service.RecordDeletedMessage, msg.Message)
}

type noOutputQuerier struct{}

func (noOutputQuerier) Execute(context.Context, string, ...sqlexec.Binding) ([]sqlexec.Row, error) {
	return []sqlexec.Row{}, nil
}

func (noOutputQuerier) ExecuteWithBindings(context.Context, string, ...sqlexec.Binding) (*sqlexec.Result, error) {
	return &sqlexec.Result{}, nil
}

func (noOutputQuerier) Dialect() sqlexec.Dialect { return sqlexec.Postgres }

func TestCreateRecordWithoutGeneratedID(t *testing.T) {
	svc := service.NewRecordService(nil, repository.NewRecordRepository(noOutputQuerier{}, 0))

	_, err := svc.CreateRecord(context.Background(), createPayload("T1"))

	httpErr := requireHTTPStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "RECORD_NOT_INSERTED", httpErr.Code)
	assert.Equal(t, "Failed to insert record", httpErr.Message)
}
