package handler

import (
	"strconv"

	"github.com/deppfellow/recordkeeper/internal/model/record"
	"github.com/deppfellow/recordkeeper/internal/server"
	"github.com/deppfellow/recordkeeper/internal/service"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
	"github.com/labstack/echo/v4"
)

// RecordLocationPrefix is where a created record can be read back.
const RecordLocationPrefix = "/v1/record/getbyRecord/"

type RecordHandler struct {
	Handler
	recordService *service.RecordService
}

func NewRecordHandler(s *server.Server, recordService *service.RecordService) *RecordHandler {
	return &RecordHandler{
		Handler:       NewHandler(s),
		recordService: recordService,
	}
}

func (h *RecordHandler) GetRecord(c echo.Context, payload *record.GetRecordRequest) ([]sqlexec.Row, error) {
	return h.recordService.GetRecord(c.Request().Context(), payload.RecordID)
}

// CreateRecord answers 201 with the stored record and a Location header
// pointing at getbyRecord.
func (h *RecordHandler) CreateRecord(c echo.Context, payload *record.CreateRecordRequest) (*record.Record, error) {
	created, err := h.recordService.CreateRecord(c.Request().Context(), payload)
	if err != nil {
		return nil, err
	}

	c.Response().Header().Set(echo.HeaderLocation, RecordLocationPrefix+strconv.FormatInt(created.RecordID, 10))
	return created, nil
}

func (h *RecordHandler) UpdateRecord(c echo.Context, payload *record.UpdateRecordRequest) (*record.Message, error) {
	return h.recordService.UpdateRecord(c.Request().Context(), payload)
}

func (h *RecordHandler) DeleteRecord(c echo.Context, payload *record.DeleteRecordRequest) (*record.Message, error) {
	return h.recordService.DeleteRecord(c.Request().Context(), payload.RecordID)
}

func (h *RecordHandler) SearchRecords(c echo.Context, payload *record.SearchRecordsRequest) ([]sqlexec.Row, error) {
	return h.recordService.SearchRecords(c.Request().Context(), payload)
}
