package telemetry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/budget-report/internal/report"
	"github.com/dvloznov/budget-report/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *telemetry.Metrics {
	t.Helper()
	return telemetry.NewMetrics(prometheus.NewRegistry())
}

func TestObserveStage(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveStage(report.StageFetch, 120*time.Millisecond, nil)
	m.ObserveStage(report.StageFetch, 80*time.Millisecond, nil)
	m.ObserveStage(report.StageBuild, time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageTotal.WithLabelValues("fetch", telemetry.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageTotal.WithLabelValues("build", telemetry.OutcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StageTotal.WithLabelValues("build", telemetry.OutcomeSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

type generatorFunc func(ctx context.Context, recipient report.Recipient) (*report.DeliveryReceipt, error)

func (f generatorFunc) Generate(ctx context.Context, recipient report.Recipient) (*report.DeliveryReceipt, error) {
	return f(ctx, recipient)
}

func TestInstrument(t *testing.T) {
	m := newTestMetrics(t)
	results := []error{
		nil,
		&report.StageError{Stage: report.StageSend, Recipient: "alice@example.com", Err: errors.New("smtp down")},
		errors.New("lock not acquired"),
	}

	for _, want := range results {
		gen := telemetry.Instrument(generatorFunc(func(context.Context, report.Recipient) (*report.DeliveryReceipt, error) {
			return nil, want
		}), m)
		_, err := gen.Generate(context.Background(), "alice@example.com")
		assert.Equal(t, want, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(telemetry.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("send")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(telemetry.OutcomeError)))
}

func TestHandler(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveStage(report.StageExport, 10*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `budget_report_stage_total{outcome="success",stage="export"} 1`), body)
	assert.Contains(t, body, "budget_report_stage_duration_seconds_bucket")
}
