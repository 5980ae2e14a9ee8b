package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/stockpile-fire-risk/internal/config"
	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

const (
	publishAttempts = 3
	initialBackoff  = 250 * time.Millisecond
	maxBackoff      = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// AlertWriter produces risk alerts to a Kafka topic.
// It implements pipeline.AlertPublisher.
type AlertWriter struct {
	writer  messageWriter
	topic   string
	backoff time.Duration
	logger  *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertWriter{writer: w, topic: cfg.KafkaAlertTopic, backoff: initialBackoff, logger: logger}
}

// Publish serializes all alerts and writes them in a single WriteMessages
// call, retrying with exponential backoff on failure.
func (w *AlertWriter) Publish(ctx context.Context, alerts []domain.RiskAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeToMessage(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	backoff := w.backoff
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			w.logger.Debug("risk alerts published", "topic", w.topic, "count", len(msgs))
			return nil
		}
		if attempt == publishAttempts {
			break
		}
		w.logger.Warn("publish risk alerts failed, retrying",
			"topic", w.topic, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("write risk alerts: %w", ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("write risk alerts after %d attempts: %w", publishAttempts, err)
}

// Close flushes pending messages and closes the underlying writer.
func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RiskAlert into a Kafka message keyed by
// stockpile so alerts for one stockpile stay ordered within a partition.
func serializeToMessage(alert domain.RiskAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.Stockpile),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(alert.RunID)},
			{Key: "forecast_at", Value: []byte(alert.ForecastAt.Format(time.RFC3339))},
		},
	}, nil
}
