// Package record defines the record payloads of the /v1/record routes.
package record

import (
	"github.com/shopspring/decimal"
)

// Record is a ledger entry as returned after it was created.
// TransactionDate is a calendar date in YYYY-MM-DD form.
type Record struct {
	RecordID        int64           `json:"record_id"`
	TeamID          string          `json:"team_id"`
	TransactionDate string          `json:"transaction_date"`
	Amount          decimal.Decimal `json:"amount"`
	Description     *string         `json:"description"`
}

// Message is the body of update and delete responses.
type Message struct {
	Message string `json:"message"`
}
