// Package report implements the budget report delivery pipeline:
// fetch the recipient's financial data, build a report from it, render
// the report to a document and mail that document to the recipient.
//
// The four collaborators are interfaces; the pipeline has no retries and
// no deduplication. Two successful runs for the same recipient deliver
// two messages.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/google/uuid"
)

// DefaultSubject is the subject line of the monthly report e-mail.
const DefaultSubject = "Seu relatório mensal!"

// Dependencies bundles the collaborators of one pipeline run.
type Dependencies struct {
	Fetcher  Fetcher
	Builder  Builder
	Exporter Exporter
	Notifier Notifier
}

func (d Dependencies) validate() error {
	errs := d.renderErrors()
	if d.Notifier == nil {
		errs = append(errs, errors.New("notifier is required"))
	}
	return errors.Join(errs...)
}

func (d Dependencies) renderErrors() []error {
	var errs []error
	if d.Fetcher == nil {
		errs = append(errs, errors.New("fetcher is required"))
	}
	if d.Builder == nil {
		errs = append(errs, errors.New("builder is required"))
	}
	if d.Exporter == nil {
		errs = append(errs, errors.New("exporter is required"))
	}
	return errs
}

// Generator runs the pipeline for one recipient at a time. It holds no
// per-run state and is safe for concurrent use.
type Generator struct {
	deps         Dependencies
	subject      string
	stageTimeout time.Duration
	observer     Observer
	now          func() time.Time
	newRunID     func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithSubject overrides DefaultSubject.
func WithSubject(subject string) Option {
	return func(g *Generator) { g.subject = subject }
}

// WithStageTimeout bounds every collaborator call. A timeout fails the
// stage like any other error.
func WithStageTimeout(d time.Duration) Option {
	return func(g *Generator) { g.stageTimeout = d }
}

// WithObserver registers an observer for stage outcomes.
func WithObserver(o Observer) Option {
	return func(g *Generator) { g.observer = o }
}

// WithClock sets the time source used for receipts.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator. All four collaborators are required.
func NewGenerator(deps Dependencies, opts ...Option) (*Generator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		deps:     deps,
		subject:  DefaultSubject,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate runs fetch, build, export and send for recipient. It returns
// either the delivery receipt or exactly one *StageError naming the stage
// that failed; later stages are never invoked after a failure.
func (g *Generator) Generate(ctx context.Context, recipient Recipient) (*DeliveryReceipt, error) {
	state := &PipelineState{
		RunID:     g.newRunID(),
		Recipient: recipient,
		Subject:   g.subject,
		Phase:     PhasePending,
	}

	p := NewPipeline(
		&FetchStep{Fetcher: g.deps.Fetcher},
		&BuildStep{Builder: g.deps.Builder},
		&ExportStep{Exporter: g.deps.Exporter},
		&SendStep{Notifier: g.deps.Notifier, now: g.now},
	)
	p.stageTimeout = g.stageTimeout
	p.observer = g.observer

	log := logger.FromContext(ctx)
	log.Info().Str("run_id", state.RunID).Str("recipient", string(recipient)).Msg("Generating budget report")

	if err := p.Execute(ctx, state); err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", state.RunID).
		Str("recipient", string(recipient)).
		Str("message_id", state.Receipt.MessageID).
		Msg("Budget report delivered")

	return state.Receipt, nil
}

// GenerateBudgetReport runs the pipeline once with the default options.
func GenerateBudgetReport(ctx context.Context, recipient Recipient, deps Dependencies) (*DeliveryReceipt, error) {
	g, err := NewGenerator(deps)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, recipient)
}

// Render runs fetch, build and export for recipient and returns the
// document without sending it. deps.Notifier is not used.
func Render(ctx context.Context, recipient Recipient, deps Dependencies, opts ...Option) (*Document, error) {
	if err := errors.Join(deps.renderErrors()...); err != nil {
		return nil, err
	}
	g := &Generator{deps: deps, newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(g)
	}

	state := &PipelineState{
		RunID:     g.newRunID(),
		Recipient: recipient,
		Phase:     PhasePending,
	}
	p := NewPipeline(
		&FetchStep{Fetcher: deps.Fetcher},
		&BuildStep{Builder: deps.Builder},
		&ExportStep{Exporter: deps.Exporter},
	)
	p.stageTimeout = g.stageTimeout
	p.observer = g.observer

	if err := p.Execute(ctx, state); err != nil {
		return nil, err
	}
	return state.Document, nil
}
