// Package app assembles the report pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/budget-report/internal/builder"
	"github.com/dvloznov/budget-report/internal/config"
	"github.com/dvloznov/budget-report/internal/exporter"
	"github.com/dvloznov/budget-report/internal/fetcher"
	"github.com/dvloznov/budget-report/internal/gcsuploader"
	infraBQ "github.com/dvloznov/budget-report/internal/infra/bigquery"
	"github.com/dvloznov/budget-report/internal/notifier"
	"github.com/dvloznov/budget-report/internal/recipientlock"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/dvloznov/budget-report/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Options controls which parts of the pipeline are required.
type Options struct {
	// Delivery requires SMTP settings and builds a notifier.
	Delivery bool
	// Registerer receives the metrics; nil means the default registry.
	Registerer prometheus.Registerer
}

// App holds the collaborators built from configuration.
type App struct {
	Deps    report.Dependencies
	Metrics *telemetry.Metrics
	// Locker is nil when Redis is disabled.
	Locker *recipientlock.Locker

	cfg     *config.Config
	closers []func() error
}

// New builds every collaborator enabled in cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("New: invalid config: %w", err)
	}
	if opts.Delivery {
		if err := cfg.ValidateDelivery(); err != nil {
			return nil, fmt.Errorf("New: invalid config: %w", err)
		}
	}

	a := &App{cfg: cfg, Metrics: telemetry.NewMetrics(opts.Registerer)}

	repo, err := infraBQ.NewBigQueryTransactionRepository(ctx, cfg.GCP.ProjectID, cfg.GCP.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	a.closers = append(a.closers, repo.Close)
	a.Deps.Fetcher = fetcher.NewBigQueryFetcher(repo)

	var narrator builder.Narrator
	if cfg.Gemini.Enabled {
		gn, err := builder.NewGeminiNarrator(ctx, builder.GeminiConfig{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		narrator = gn
	}
	a.Deps.Builder = builder.NewReportBuilder(narrator, builder.WithTopCategories(cfg.Report.TopCategories))

	var exp report.Exporter = exporter.NewPDFExporter(cfg.Report.Author)
	if cfg.Archive.Enabled {
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.closers = append(a.closers, storage.Close)
		exp = exporter.NewArchivingExporter(exp, storage, cfg.Archive.Bucket, cfg.Archive.Prefix)
	}
	a.Deps.Exporter = exp

	if opts.Delivery {
		n, err := notifier.NewSMTPNotifier(notifier.SMTPConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			RequireTLS: cfg.SMTP.RequireTLS,
			Timeout:    cfg.SMTP.Timeout,
		})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.Deps.Notifier = n
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("New: ping redis %s: %w", cfg.Redis.Addr, err)
		}
		a.Locker = recipientlock.New(client, recipientlock.Config{TTL: cfg.Redis.LockTTL})
	}

	return a, nil
}

// Generator returns the full pipeline: report.Generator, serialized per
// recipient when a Locker is configured, with every run counted.
func (a *App) Generator() (telemetry.Generator, error) {
	return Compose(a.Deps, a.cfg.Report, a.Metrics, a.Locker)
}

// Compose wires a generator from ready-made collaborators.
func Compose(deps report.Dependencies, rc config.ReportConfig, metrics *telemetry.Metrics, locker *recipientlock.Locker) (telemetry.Generator, error) {
	opts := []report.Option{report.WithStageTimeout(rc.StageTimeout)}
	if rc.Subject != "" {
		opts = append(opts, report.WithSubject(rc.Subject))
	}
	if metrics != nil {
		opts = append(opts, report.WithObserver(metrics))
	}

	gen, err := report.NewGenerator(deps, opts...)
	if err != nil {
		return nil, fmt.Errorf("Compose: %w", err)
	}

	var g telemetry.Generator = gen
	if locker != nil {
		g = recipientlock.Guard(locker, g)
	}
	if metrics != nil {
		g = telemetry.Instrument(g, metrics)
	}
	return g, nil
}

// Render produces the document for recipient without sending it.
func (a *App) Render(ctx context.Context, recipient report.Recipient) (*report.Document, error) {
	return report.Render(ctx, recipient, a.Deps,
		report.WithStageTimeout(a.cfg.Report.StageTimeout),
		report.WithObserver(a.Metrics))
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
