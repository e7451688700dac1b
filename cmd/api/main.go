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

	httpadapter "github.com/nyayasetu/legal-rag/internal/adapters/http"
	"github.com/nyayasetu/legal-rag/internal/bootstrap"
	"github.com/nyayasetu/legal-rag/internal/config"
	"github.com/nyayasetu/legal-rag/internal/observability/logging"
)

const service = "api"

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

	// An empty collection on startup means the corpus was never ingested
	// (or Qdrant lost its volume). Hand the work to the worker instead of
	// blocking API startup on a full corpus pass.
	if size, err := app.QueryUC.CollectionSize(ctx); err != nil {
		slog.Warn("collection size check failed", "error", err)
	} else if size == 0 {
		if err := app.Queue.PublishReingestRequested(ctx, cfg.CorpusDir); err != nil {
			slog.Warn("publish reingest request failed", "error", err)
		} else {
			slog.Info("collection empty, reingest requested", "corpus_dir", cfg.CorpusDir)
		}
	}

	router := httpadapter.NewRouter(
		app.IngestUC,
		app.QueryUC,
		app.Catalog,
		cfg.CorpusDir,
		cfg.EnableWebSearch,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      app.Metrics.Middleware(service, router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
	_ = metricsServer.Shutdown(shutdownCtx)
}
