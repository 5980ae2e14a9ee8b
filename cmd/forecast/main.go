// Command forecast scores an inference table with the trained model and
// writes the result table and a text report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/csvfile"
	kafkaadapter "github.com/couchcryptid/stockpile-fire-risk/internal/adapter/kafka"
	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/output"
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

	input := flag.String("input", cfg.PredictFile, "inference CSV with the feature columns")
	threshold := flag.Float64("threshold", cfg.RiskThreshold, "probability at or above which a row is high-risk")
	flag.Parse()

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, *input, *threshold, logger); err != nil {
		logger.Error("forecast failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, input string, threshold float64, logger *slog.Logger) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("threshold %v must be in (0, 1]", threshold)
	}

	table, err := csvfile.ReadTable(input)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	var alerts pipeline.AlertPublisher
	if cfg.AlertsEnabled {
		writer := kafkaadapter.NewAlertWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		alerts = writer
		logger.Info("risk alerts enabled", "topic", cfg.KafkaAlertTopic)
	}

	models := pipeline.NewModelProvider(model.NewStore(cfg.ModelDir), logger, metrics)
	f := pipeline.NewForecaster(models, alerts, report.NewBuilder(clock, cfg.ReportTopN), clock, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := f.Forecast(ctx, table, threshold)
	if err != nil {
		return err
	}

	sink := output.NewFileSink(cfg.OutputDir)
	if err := sink.WriteForecast(out.Forecast, out.Summary); err != nil {
		return err
	}
	if err := report.Render(os.Stdout, out.Summary); err != nil {
		return err
	}
	logger.Info("forecast written",
		"run_id", out.RunID,
		"result", sink.Path(output.ForecastResult),
		"report", sink.Path(output.ForecastReport),
	)
	return nil
}
