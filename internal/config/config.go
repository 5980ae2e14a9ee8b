package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	DataDir         string
	ModelDir        string
	OutputDir       string
	PredictFile     string
	TrainParamsFile string

	RiskThreshold float64
	ReportTopN    int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Risk alert sink.
	KafkaBrokers    []string
	KafkaAlertTopic string
	AlertsEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	threshold, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RISK_THRESHOLD", "0.1"), 64)
	if err != nil || threshold <= 0 || threshold > 1 {
		return nil, errors.New("invalid RISK_THRESHOLD: must be in (0, 1]")
	}

	topN, err := strconv.Atoi(sharedcfg.EnvOrDefault("REPORT_TOP_N", "10"))
	if err != nil || topN <= 0 {
		return nil, errors.New("invalid REPORT_TOP_N")
	}

	maxUpload, err := strconv.ParseInt(sharedcfg.EnvOrDefault("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, errors.New("invalid MAX_UPLOAD_BYTES")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	alertsEnabled := len(brokers) > 0
	if v := os.Getenv("ALERTS_ENABLED"); v != "" {
		alertsEnabled = v == "true"
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")
	cfg := &Config{
		DataDir:         dataDir,
		ModelDir:        sharedcfg.EnvOrDefault("MODEL_DIR", filepath.Join(dataDir, "pkl")),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", filepath.Join(dataDir, "output")),
		PredictFile:     sharedcfg.EnvOrDefault("PREDICT_FILE", filepath.Join(dataDir, "schedule_for_prediction.csv")),
		TrainParamsFile: os.Getenv("TRAIN_PARAMS_FILE"),

		RiskThreshold: threshold,
		ReportTopN:    topN,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxUploadBytes:  maxUpload,

		KafkaBrokers:    brokers,
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "stockpile-fire-alerts"),
		AlertsEnabled:   alertsEnabled,
	}

	if cfg.AlertsEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("ALERTS_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.AlertsEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when alerts are enabled")
	}
	if info, err := os.Stat(cfg.DataDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("DATA_DIR %s is not a directory", cfg.DataDir)
	}

	return cfg, nil
}
