package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/budget-report/internal/api/handlers"
	"github.com/dvloznov/budget-report/internal/app"
	"github.com/dvloznov/budget-report/internal/config"
	"github.com/dvloznov/budget-report/internal/jobs"
	"github.com/dvloznov/budget-report/internal/jobs/inmemory"
	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/dvloznov/budget-report/internal/telemetry"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, app.Options{Delivery: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build report pipeline")
	}
	defer a.Close()

	gen, err := a.Generator()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create report generator")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.API.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, newJobHandler(gen)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}
	log.Info().Int("workers", cfg.API.Workers).Msg("Job workers started")

	router := handlers.NewRouter(
		handlers.NewReportsHandler(jobQueue, log),
		handlers.NewJobsHandler(jobStore, log),
		a.Metrics.Handler(),
		log,
		cfg.API.CORSOrigins...,
	)

	server := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.API.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop accepting jobs, wait for in-flight reports, fail the rest
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

// newJobHandler runs one report per job and records the outcome on it.
// Failures after the send stage started are not retried.
func newJobHandler(gen telemetry.Generator) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ReportJob) error {
		receipt, err := gen.Generate(ctx, job.Recipient)
		if err != nil {
			stage, ok := report.FailedStage(err)
			if ok {
				job.FailedStage = stage
			}
			if ok && stage == report.StageSend {
				return jobs.Permanent(err)
			}
			return err
		}

		job.FailedStage = ""
		job.RunID = receipt.RunID
		job.MessageID = receipt.MessageID
		job.Document = receipt.Document
		return nil
	}
}
