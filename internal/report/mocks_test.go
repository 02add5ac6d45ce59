package report_test

import (
	"context"
	"time"

	"github.com/dvloznov/budget-report/internal/report"
	"github.com/shopspring/decimal"
)

// MockFetcher is a mock implementation of report.Fetcher for testing.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, recipient report.Recipient) (*report.FinancialData, error)
	Calls     int
}

func (m *MockFetcher) Fetch(ctx context.Context, recipient report.Recipient) (*report.FinancialData, error) {
	m.Calls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, recipient)
	}
	return monthlyData(recipient), nil
}

// MockBuilder is a mock implementation of report.Builder for testing.
type MockBuilder struct {
	BuildFunc func(ctx context.Context, data *report.FinancialData) (*report.Report, error)
	Calls     int
}

func (m *MockBuilder) Build(ctx context.Context, data *report.FinancialData) (*report.Report, error) {
	m.Calls++
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, data)
	}
	return &report.Report{
		Recipient: data.Recipient,
		Period:    data.Period,
		Currency:  data.Currency,
		Title:     "Relatório mensal",
		Summary:   "Você economizou este mês.",
	}, nil
}

// MockExporter is a mock implementation of report.Exporter for testing.
type MockExporter struct {
	ExportFunc func(ctx context.Context, r *report.Report) (*report.Document, error)
	Calls      int
}

func (m *MockExporter) Export(ctx context.Context, r *report.Report) (*report.Document, error) {
	m.Calls++
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, r)
	}
	return &report.Document{
		Filename:    "relatorio-2024-01.pdf",
		ContentType: "application/pdf",
		Title:       r.Title,
		Data:        []byte("%PDF-1.3 mock"),
	}, nil
}

// sentMessage records one Notifier.Send call.
type sentMessage struct {
	Recipient report.Recipient
	Subject   string
	Document  *report.Document
}

// MockNotifier is a mock implementation of report.Notifier for testing.
type MockNotifier struct {
	SendFunc func(ctx context.Context, recipient report.Recipient, subject string, doc *report.Document) (*report.DeliveryReceipt, error)
	Sent     []sentMessage
}

func (m *MockNotifier) Send(ctx context.Context, recipient report.Recipient, subject string, doc *report.Document) (*report.DeliveryReceipt, error) {
	m.Sent = append(m.Sent, sentMessage{Recipient: recipient, Subject: subject, Document: doc})
	if m.SendFunc != nil {
		return m.SendFunc(ctx, recipient, subject, doc)
	}
	return &report.DeliveryReceipt{
		Recipient: recipient,
		Subject:   subject,
		MessageID: "<mock@example.com>",
	}, nil
}

// recordingObserver collects stage outcomes.
type recordingObserver struct {
	stages []report.Stage
	errs   []error
}

func (o *recordingObserver) ObserveStage(stage report.Stage, _ time.Duration, err error) {
	o.stages = append(o.stages, stage)
	o.errs = append(o.errs, err)
}

func monthlyData(recipient report.Recipient) *report.FinancialData {
	return &report.FinancialData{
		Recipient: recipient,
		Period: report.Period{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		Currency: "BRL",
		Transactions: []report.Transaction{
			{ID: "t1", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Description: "Salário", Amount: decimal.NewFromInt(5000), Currency: "BRL", Category: "Income"},
			{ID: "t2", Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Description: "Mercado", Amount: decimal.NewFromInt(-800), Currency: "BRL", Category: "Food"},
		},
	}
}

type mocks struct {
	fetcher  *MockFetcher
	builder  *MockBuilder
	exporter *MockExporter
	notifier *MockNotifier
}

func newMocks() *mocks {
	return &mocks{
		fetcher:  &MockFetcher{},
		builder:  &MockBuilder{},
		exporter: &MockExporter{},
		notifier: &MockNotifier{},
	}
}

func (m *mocks) deps() report.Dependencies {
	return report.Dependencies{
		Fetcher:  m.fetcher,
		Builder:  m.builder,
		Exporter: m.exporter,
		Notifier: m.notifier,
	}
}
