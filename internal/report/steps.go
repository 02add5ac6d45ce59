package report

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/budget-report/internal/logger"
)

// Phase is the position of a run in the pipeline state machine.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseFetching  Phase = "fetching"
	PhaseBuilding  Phase = "building"
	PhaseExporting Phase = "exporting"
	PhaseSending   Phase = "sending"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// PipelineStep represents a single step in the delivery pipeline.
type PipelineStep interface {
	Stage() Stage
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the values handed from one step to the next.
type PipelineState struct {
	RunID     string
	Recipient Recipient
	Subject   string
	Phase     Phase

	Data     *FinancialData
	Report   *Report
	Document *Document
	Receipt  *DeliveryReceipt
}

// FetchStep loads the recipient's financial data.
type FetchStep struct {
	Fetcher Fetcher
}

func (s *FetchStep) Stage() Stage { return StageFetch }

func (s *FetchStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.Fetcher.Fetch(ctx, state.Recipient)
	if err != nil {
		return err
	}
	if data == nil {
		return errEmptyOutput
	}
	state.Data = data
	return nil
}

// BuildStep turns the fetched data into a report.
type BuildStep struct {
	Builder Builder
}

func (s *BuildStep) Stage() Stage { return StageBuild }

func (s *BuildStep) Execute(ctx context.Context, state *PipelineState) error {
	r, err := s.Builder.Build(ctx, state.Data)
	if err != nil {
		return err
	}
	if r == nil {
		return errEmptyOutput
	}
	state.Report = r
	return nil
}

// ExportStep renders the report.
type ExportStep struct {
	Exporter Exporter
}

func (s *ExportStep) Stage() Stage { return StageExport }

func (s *ExportStep) Execute(ctx context.Context, state *PipelineState) error {
	doc, err := s.Exporter.Export(ctx, state.Report)
	if err != nil {
		return err
	}
	if doc == nil || len(doc.Data) == 0 {
		return errEmptyOutput
	}
	state.Document = doc
	return nil
}

// SendStep mails the rendered document, never the report itself.
type SendStep struct {
	Notifier Notifier
	now      func() time.Time
}

func (s *SendStep) Stage() Stage { return StageSend }

func (s *SendStep) Execute(ctx context.Context, state *PipelineState) error {
	receipt, err := s.Notifier.Send(ctx, state.Recipient, state.Subject, state.Document)
	if err != nil {
		return err
	}
	// The message is out; a missing receipt is filled in rather than
	// reported as a failure that would invite a duplicate send.
	if receipt == nil {
		receipt = &DeliveryReceipt{}
	}
	if receipt.RunID == "" {
		receipt.RunID = state.RunID
	}
	if receipt.Recipient == "" {
		receipt.Recipient = state.Recipient
	}
	if receipt.Subject == "" {
		receipt.Subject = state.Subject
	}
	if receipt.Document == "" {
		receipt.Document = state.Document.Filename
	}
	if receipt.SentAt.IsZero() {
		now := time.Now
		if s.now != nil {
			now = s.now
		}
		receipt.SentAt = now()
	}
	state.Receipt = receipt
	return nil
}

var stagePhase = map[Stage]Phase{
	StageFetch:  PhaseFetching,
	StageBuild:  PhaseBuilding,
	StageExport: PhaseExporting,
	StageSend:   PhaseSending,
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps        []PipelineStep
	stageTimeout time.Duration
	observer     Observer
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially. The first failing step moves the
// state to PhaseFailed and its error, wrapped in a *StageError, is returned.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.WithRecipient(logger.FromContext(ctx), string(state.Recipient)).With().
		Str("run_id", state.RunID).
		Logger()

	for _, step := range p.steps {
		stage := step.Stage()
		state.Phase = stagePhase[stage]

		start := time.Now()
		err := p.runStep(ctx, step, state)
		elapsed := time.Since(start)

		if p.observer != nil {
			p.observer.ObserveStage(stage, elapsed, err)
		}

		if err != nil {
			state.Phase = PhaseFailed
			log.Error().Err(err).Str("stage", string(stage)).Dur("duration", elapsed).Msg("Pipeline stage failed")
			return newStageError(stage, state.Recipient, err)
		}

		log.Debug().Str("stage", string(stage)).Dur("duration", elapsed).Msg("Pipeline stage completed")
	}

	state.Phase = PhaseDone
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, step PipelineStep, state *PipelineState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("not started: %w", err)
	}
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}
	if err := step.Execute(ctx, state); err != nil {
		return err
	}
	// A collaborator that ignores its context can still return after the
	// deadline. Its output is discarded.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("finished after deadline: %w", err)
	}
	return nil
}
