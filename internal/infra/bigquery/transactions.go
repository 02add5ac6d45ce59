package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRow is the subset of finance.transactions read for reports.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID    string `bigquery:"user_id"`    // NULLABLE
	AccountID string `bigquery:"account_id"` // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED in schema

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	RawDescription        string              `bigquery:"raw_description"`        // REQUIRED STRING
	NormalizedDescription bigquery.NullString `bigquery:"normalized_description"` // NULLABLE STRING

	CategoryName    bigquery.NullString `bigquery:"category_name"`    // NULLABLE
	SubcategoryName bigquery.NullString `bigquery:"subcategory_name"` // NULLABLE

	IsInternalTransfer bigquery.NullBool `bigquery:"is_internal_transfer"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// Description prefers the normalized description when present.
func (r *TransactionRow) Description() string {
	if r.NormalizedDescription.Valid && r.NormalizedDescription.StringVal != "" {
		return r.NormalizedDescription.StringVal
	}
	return r.RawDescription
}
