package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nyayasetu/legal-rag/internal/bootstrap"
	"github.com/nyayasetu/legal-rag/internal/config"
	"github.com/nyayasetu/legal-rag/internal/core/domain"
	"github.com/nyayasetu/legal-rag/internal/observability/logging"
)

const service = "worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", app.Metrics.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}
	go func() {
		slog.Info("metrics listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeReingestRequested(ctx, func(handlerCtx context.Context, corpusDir string) error {
		ingestCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()

		chunks, err := app.IngestUC.IngestCorpus(ingestCtx, corpusDir, true)
		if err != nil {
			// A concurrent run already holds the collection; the message
			// served its purpose, do not redeliver.
			if domain.IsKind(err, domain.ErrIngestInProgress) {
				slog.Warn("reingest skipped, ingestion already running", "corpus_dir", corpusDir)
				return nil
			}
			return err
		}

		slog.Info("reingest complete", "corpus_dir", corpusDir, "chunks", chunks)
		return nil
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
