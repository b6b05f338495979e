package service

import (
	"context"
	"errors"

	"github.com/deppfellow/recordkeeper/internal/errs"
	"github.com/deppfellow/recordkeeper/internal/middleware"
	"github.com/deppfellow/recordkeeper/internal/model/record"
	"github.com/deppfellow/recordkeeper/internal/repository"
	"github.com/deppfellow/recordkeeper/internal/server"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
)

const (
	RecordUpdatedMessage = "Record updated successfully"
	RecordDeletedMessage = "Record deleted successfully"
)

type RecordService struct {
	server     *server.Server
	recordRepo *repository.RecordRepository
}

func NewRecordService(s *server.Server, recordRepo *repository.RecordRepository) *RecordService {
	return &RecordService{
		server:     s,
		recordRepo: recordRepo,
	}
}

// GetRecord returns the record as a list of zero or one rows.
func (s *RecordService) GetRecord(ctx context.Context, recordID int64) ([]sqlexec.Row, error) {
	return s.recordRepo.GetRecordByID(ctx, recordID)
}

// CreateRecord stores a record and returns it with its generated id.
func (s *RecordService) CreateRecord(ctx context.Context, payload *record.CreateRecordRequest) (*record.Record, error) {
	logger := middleware.LoggerFromContext(ctx)

	id, err := s.recordRepo.CreateRecord(ctx, payload)
	if errors.Is(err, sqlexec.ErrNoValueProduced) {
		logger.Error().Err(err).Str("team_id", payload.TeamID).Msg("insert produced no record id")
		code := "RECORD_NOT_INSERTED"
		return nil, errs.NewBadRequestError("Failed to insert record", true, &code, nil)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("event", "record_created").
		Int64("record_id", id).
		Str("team_id", payload.TeamID).
		Msg("record created")

	return payload.Record(id), nil
}

// UpdateRecord overwrites a record. Updating a record that does not exist
// is a 404.
func (s *RecordService) UpdateRecord(ctx context.Context, payload *record.UpdateRecordRequest) (*record.Message, error) {
	affected, err := s.recordRepo.UpdateRecord(ctx, payload)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, errs.NewNotFoundError("Record to update not found", true, nil)
	}

	middleware.LoggerFromContext(ctx).Info().
		Str("event", "record_updated").
		Int64("record_id", payload.RecordID).
		Msg("record updated")

	return &record.Message{Message: RecordUpdatedMessage}, nil
}

// DeleteRecord removes a record. Deleting a record that does not exist is a
// 404.
func (s *RecordService) DeleteRecord(ctx context.Context, recordID int64) (*record.Message, error) {
	affected, err := s.recordRepo.DeleteRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, errs.NewNotFoundError("Record to delete not found", true, nil)
	}

	middleware.LoggerFromContext(ctx).Info().
		Str("event", "record_deleted").
		Int64("record_id", recordID).
		Msg("record deleted")

	return &record.Message{Message: RecordDeletedMessage}, nil
}

func (s *RecordService) SearchRecords(ctx context.Context, filter *record.SearchRecordsRequest) ([]sqlexec.Row, error) {
	return s.recordRepo.SearchRecords(ctx, filter)
}
