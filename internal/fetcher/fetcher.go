// Package fetcher loads a recipient's transactions for the reporting period
// from BigQuery.
package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	infra "github.com/dvloznov/budget-report/internal/infra/bigquery"
	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/shopspring/decimal"
)

// numericScale is the fractional precision of a BigQuery NUMERIC.
const numericScale = 9

// PeriodFunc picks the reporting period for a given instant.
type PeriodFunc func(now time.Time) report.Period

// PreviousMonth returns the full calendar month before now, in now's location.
func PreviousMonth(now time.Time) report.Period {
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := firstOfThisMonth.AddDate(0, -1, 0)
	end := firstOfThisMonth.AddDate(0, 0, -1)
	return report.Period{Start: start, End: end}
}

// BigQueryFetcher implements report.Fetcher on top of a TransactionRepository.
type BigQueryFetcher struct {
	repo   infra.TransactionRepository
	period PeriodFunc
	now    func() time.Time
}

// Option configures a BigQueryFetcher.
type Option func(*BigQueryFetcher)

// WithPeriod overrides the PreviousMonth policy.
func WithPeriod(fn PeriodFunc) Option {
	return func(f *BigQueryFetcher) { f.period = fn }
}

// WithClock sets the time source used to pick the period.
func WithClock(now func() time.Time) Option {
	return func(f *BigQueryFetcher) { f.now = now }
}

// NewBigQueryFetcher creates a fetcher reading from repo.
func NewBigQueryFetcher(repo infra.TransactionRepository, opts ...Option) *BigQueryFetcher {
	f := &BigQueryFetcher{
		repo:   repo,
		period: PreviousMonth,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the recipient's transactions for the current reporting period.
func (f *BigQueryFetcher) Fetch(ctx context.Context, recipient report.Recipient) (*report.FinancialData, error) {
	userID := strings.TrimSpace(string(recipient))
	if userID == "" {
		return nil, fmt.Errorf("Fetch: empty recipient: %w", report.ErrNotFound)
	}

	period := f.period(f.now())

	rows, err := f.repo.QueryTransactionsForUser(ctx, userID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w: %w", report.ErrUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("Fetch: no transactions for %s in %s: %w", userID, period.Label(), report.ErrNotFound)
	}

	data := &report.FinancialData{
		Recipient:    recipient,
		Period:       period,
		Currency:     rows[0].Currency,
		Transactions: make([]report.Transaction, 0, len(rows)),
	}
	for _, row := range rows {
		tx, err := toTransaction(row)
		if err != nil {
			return nil, fmt.Errorf("Fetch: %w", err)
		}
		data.Transactions = append(data.Transactions, tx)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("recipient", userID).
		Str("period", period.Label()).
		Int("transactions", len(data.Transactions)).
		Msg("Fetched financial data")

	return data, nil
}

func toTransaction(row *infra.TransactionRow) (report.Transaction, error) {
	if row.Amount == nil {
		return report.Transaction{}, fmt.Errorf("transaction %s has no amount", row.TransactionID)
	}

	tx := report.Transaction{
		ID:          row.TransactionID,
		Date:        row.TransactionDate.In(time.UTC),
		Description: row.Description(),
		Amount:      decimal.NewFromBigRat(row.Amount, numericScale),
		Currency:    row.Currency,
	}
	if row.CategoryName.Valid {
		tx.Category = row.CategoryName.StringVal
	}
	if row.SubcategoryName.Valid {
		tx.Subcategory = row.SubcategoryName.StringVal
	}
	return tx, nil
}

var _ report.Fetcher = (*BigQueryFetcher)(nil)
