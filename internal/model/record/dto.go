package record

import (
	"github.com/deppfellow/recordkeeper/internal/validation"
	"github.com/shopspring/decimal"
)

// ------------------------------------------------------------

type GetRecordRequest struct {
	RecordID int64 `param:"record_id" validate:"required,gt=0"`
}

func (r *GetRecordRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// ------------------------------------------------------------

type CreateRecordRequest struct {
	TeamID          string           `json:"team_id" validate:"required,max=50"`
	TransactionDate string           `json:"transaction_date" validate:"required,date"`
	Amount          *decimal.Decimal `json:"amount" validate:"required"`
	Description     *string          `json:"description" validate:"omitempty,max=500"`
}

func (r *CreateRecordRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// Record builds the stored record once the database assigned its id.
func (r *CreateRecordRequest) Record(id int64) *Record {
	return &Record{
		RecordID:        id,
		TeamID:          r.TeamID,
		TransactionDate: r.TransactionDate,
		Amount:          *r.Amount,
		Description:     r.Description,
	}
}

// ------------------------------------------------------------

type UpdateRecordRequest struct {
	RecordID        int64            `param:"record_id" json:"-" validate:"required,gt=0"`
	TeamID          string           `json:"team_id" validate:"required,max=50"`
	TransactionDate string           `json:"transaction_date" validate:"required,date"`
	Amount          *decimal.Decimal `json:"amount" validate:"required"`
	Description     *string          `json:"description" validate:"omitempty,max=500"`
}

func (r *UpdateRecordRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// ------------------------------------------------------------

type DeleteRecordRequest struct {
	RecordID int64 `param:"record_id" validate:"required,gt=0"`
}

func (r *DeleteRecordRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// ------------------------------------------------------------

// SearchRecordsRequest carries the optional search filters. Empty fields do
// not filter.
type SearchRecordsRequest struct {
	TeamID          string `query:"team_id" validate:"omitempty,max=50"`
	TransactionDate string `query:"transaction_date" validate:"omitempty,date"`
	MinAmount       string `query:"min_amount" validate:"omitempty,decimal"`
	MaxAmount       string `query:"max_amount" validate:"omitempty,decimal"`
	Description     string `query:"description" validate:"omitempty,max=500"`
}

func (r *SearchRecordsRequest) Validate() error {
	if err := validation.ValidateStruct(r); err != nil {
		return err
	}

	if r.MinAmount != "" && r.MaxAmount != "" {
		lo := decimal.RequireFromString(r.MinAmount)
		hi := decimal.RequireFromString(r.MaxAmount)
		if lo.GreaterThan(hi) {
			return validation.CustomValidationErrors{{
				Field:   "min_amount",
				Message: "must not be greater than max_amount",
			}}
		}
	}
	return nil
}
