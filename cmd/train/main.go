//go:debug randseednop=0

// Command train builds the feature table from the data directory, fits the
// fire-risk classifier and writes the model artifact.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/csvfile"
	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/output"
	"github.com/couchcryptid/stockpile-fire-risk/internal/config"
	"github.com/couchcryptid/stockpile-fire-risk/internal/model"
	"github.com/couchcryptid/stockpile-fire-risk/internal/observability"
	"github.com/couchcryptid/stockpile-fire-risk/internal/pipeline"
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

	params, err := model.LoadParams(cfg.TrainParamsFile)
	if err != nil {
		logger.Error("failed to load training params", "error", err)
		os.Exit(1)
	}

	loader := csvfile.NewLoader(csvfile.DefaultPaths(cfg.DataDir), logger)
	trainer := model.NewTrainer(params, logger)
	store := model.NewStore(cfg.ModelDir)
	sink := output.NewFileSink(cfg.OutputDir)

	p := pipeline.New(loader, trainer, store, sink, clockwork.NewRealClock(), logger, metrics, cfg.RiskThreshold)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := p.Run(ctx)
	if err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}

	logger.Info("model saved",
		"run_id", res.RunID,
		"model_dir", store.Dir(),
		"feature_table", sink.Path(output.FeatureTableCSV),
		"rows", res.Stats.Rows,
		"positives", res.Stats.Positives,
		"recall", res.Evaluation.Recall,
	)
}
