package report

import (
	"context"
	"time"
)

// Fetcher retrieves the financial data needed for a recipient's report.
// Implementations return an error wrapping ErrNotFound when no data exists
// and ErrUnavailable when the data source cannot be reached.
type Fetcher interface {
	Fetch(ctx context.Context, recipient Recipient) (*FinancialData, error)
}

// Builder turns financial data into a structured report.
type Builder interface {
	Build(ctx context.Context, data *FinancialData) (*Report, error)
}

// Exporter renders a report into a transmittable document.
type Exporter interface {
	Export(ctx context.Context, r *Report) (*Document, error)
}

// Notifier delivers a document to a recipient.
type Notifier interface {
	Send(ctx context.Context, recipient Recipient, subject string, doc *Document) (*DeliveryReceipt, error)
}

// Observer is notified after every stage the pipeline runs.
type Observer interface {
	ObserveStage(stage Stage, elapsed time.Duration, err error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, recipient Recipient) (*FinancialData, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, recipient Recipient) (*FinancialData, error) {
	return f(ctx, recipient)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, data *FinancialData) (*Report, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, data *FinancialData) (*Report, error) {
	return f(ctx, data)
}

// ExporterFunc adapts a function to the Exporter interface.
type ExporterFunc func(ctx context.Context, r *Report) (*Document, error)

// Export calls f.
func (f ExporterFunc) Export(ctx context.Context, r *Report) (*Document, error) {
	return f(ctx, r)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, recipient Recipient, subject string, doc *Document) (*DeliveryReceipt, error)

// Send calls f.
func (f NotifierFunc) Send(ctx context.Context, recipient Recipient, subject string, doc *Document) (*DeliveryReceipt, error) {
	return f(ctx, recipient, subject, doc)
}
