// Package builder turns a recipient's financial data into a report: the
// figures are computed here, the narrative comes from a Narrator.
package builder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/dvloznov/budget-report/internal/report"
)

// ReportBuilder implements report.Builder.
type ReportBuilder struct {
	narrator Narrator
	topN     int
	now      func() time.Time
}

// Option configures a ReportBuilder.
type Option func(*ReportBuilder)

// WithTopCategories sets how many spending categories are listed.
func WithTopCategories(n int) Option {
	return func(b *ReportBuilder) { b.topN = n }
}

// WithClock sets the time source for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(b *ReportBuilder) { b.now = now }
}

// NewReportBuilder creates a builder. A nil narrator means TemplateNarrator.
func NewReportBuilder(narrator Narrator, opts ...Option) *ReportBuilder {
	if narrator == nil {
		narrator = TemplateNarrator{}
	}
	b := &ReportBuilder{
		narrator: narrator,
		topN:     DefaultTopCategories,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates data, computes the figures and asks the narrator for the
// summary. A narrator failure fails the build; no fallback text is used.
func (b *ReportBuilder) Build(ctx context.Context, data *report.FinancialData) (*report.Report, error) {
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	figures, top := Summarize(data, b.topN)
	r := &report.Report{
		Recipient:     data.Recipient,
		Period:        data.Period,
		Currency:      strings.ToUpper(data.Currency),
		Title:         Title(data.Period),
		Figures:       figures,
		TopCategories: top,
		GeneratedAt:   b.now(),
	}

	narrative, err := b.narrator.Narrate(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("Build: narrate: %w", err)
	}
	if narrative == nil || strings.TrimSpace(narrative.Summary) == "" {
		return nil, fmt.Errorf("Build: narrator returned an empty summary")
	}

	r.Summary = strings.TrimSpace(narrative.Summary)
	for _, rec := range narrative.Recommendations {
		if rec = strings.TrimSpace(rec); rec != "" {
			r.Recommendations = append(r.Recommendations, rec)
		}
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("recipient", string(r.Recipient)).
		Str("period", r.Period.Label()).
		Str("net", r.Figures.Net.String()).
		Msg("Built report")

	return r, nil
}

// Title returns the report heading for a period.
func Title(p report.Period) string {
	return "Relatório financeiro " + periodPhrase(p)
}

var _ report.Builder = (*ReportBuilder)(nil)
