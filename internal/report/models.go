package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipient identifies the account holder. It is both the lookup key for
// financial data and the delivery address.
type Recipient string

// Period is the reporting window, inclusive on both ends.
type Period struct {
	Start time.Time
	End   time.Time
}

// Label returns the period as "YYYY-MM" when it covers one calendar month,
// otherwise as "YYYY-MM-DD..YYYY-MM-DD".
func (p Period) Label() string {
	sameMonth := p.Start.Year() == p.End.Year() && p.Start.Month() == p.End.Month()
	if sameMonth && p.Start.Day() == 1 && p.End.AddDate(0, 0, 1).Day() == 1 {
		return p.Start.Format("2006-01")
	}
	return p.Start.Format("2006-01-02") + ".." + p.End.Format("2006-01-02")
}

// Transaction is one normalized money movement for the recipient.
type Transaction struct {
	ID          string
	Date        time.Time
	Description string
	Amount      decimal.Decimal // IN = positive, OUT = negative
	Currency    string
	Category    string
	Subcategory string
}

// FinancialData is the record set for one recipient over one period.
// It is produced by a Fetcher and consumed only by a Builder.
type FinancialData struct {
	Recipient    Recipient
	Period       Period
	Currency     string
	Transactions []Transaction
}

// Figures are the computed numbers of a report.
type Figures struct {
	Income           decimal.Decimal
	Expenses         decimal.Decimal // positive magnitude
	Net              decimal.Decimal // Income - Expenses
	SavingsRate      decimal.Decimal // Net / Income as a percentage, 0 without income
	TransactionCount int
}

// CategoryTotal is the spend of one category in the period.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal // positive magnitude
}

// Report is the structured summary produced by a Builder.
type Report struct {
	Recipient       Recipient
	Period          Period
	Currency        string
	Title           string
	Figures         Figures
	TopCategories   []CategoryTotal
	Summary         string
	Recommendations []string
	GeneratedAt     time.Time
}

// Document is a rendered report ready to be transmitted.
type Document struct {
	Filename    string
	ContentType string
	Title       string
	Data        []byte

	// Location is set when the document was archived, e.g. "gs://bucket/key".
	Location string
}

// DeliveryReceipt confirms that the message was handed to the mail subsystem.
type DeliveryReceipt struct {
	RunID     string
	Recipient Recipient
	Subject   string
	MessageID string
	Document  string
	SentAt    time.Time
}
