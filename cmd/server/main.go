// Command server serves fire-risk forecasts over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/stockpile-fire-risk/internal/adapter/kafka"
	"github.com/couchcryptid/stockpile-fire-risk/internal/config"
	"github.com/couchcryptid/stockpile-fire-risk/internal/model"
	"github.com/couchcryptid/stockpile-fire-risk/internal/observability"
	"github.com/couchcryptid/stockpile-fire-risk/internal/pipeline"
	"github.com/couchcryptid/stockpile-fire-risk/internal/report"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	models := pipeline.NewModelProvider(model.NewStore(cfg.ModelDir), logger, metrics)
	if _, _, err := models.Predictor(); err != nil {
		logger.Warn("no model loaded yet, forecasts return 503 until one is trained", "error", err)
	}

	// Alerts are optional (KAFKA_BROKERS / ALERTS_ENABLED).
	var alerts pipeline.AlertPublisher
	var writer *kafkaadapter.AlertWriter
	if cfg.AlertsEnabled {
		writer = kafkaadapter.NewAlertWriter(cfg, logger)
		alerts = writer
		logger.Info("risk alerts enabled", "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("risk alerts disabled")
	}

	f := pipeline.NewForecaster(models, alerts, report.NewBuilder(clock, cfg.ReportTopN), clock, logger, metrics)
	opts := httpadapter.Options{Threshold: cfg.RiskThreshold, MaxUploadBytes: cfg.MaxUploadBytes}
	srv := httpadapter.NewServer(cfg.HTTPAddr, models, f, models, opts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
