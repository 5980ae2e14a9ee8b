//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/kafka"
	"github.com/couchcryptid/stockpile-fire-risk/internal/config"
	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/model"
	"github.com/couchcryptid/stockpile-fire-risk/internal/observability"
	"github.com/couchcryptid/stockpile-fire-risk/internal/pipeline"
	"github.com/couchcryptid/stockpile-fire-risk/internal/predict"
	"github.com/couchcryptid/stockpile-fire-risk/internal/report"
)

const testAlertTopic = "test-alerts"

// alertMessage holds a deserialized message read from the alert topic.
type alertMessage struct {
	Alert   domain.RiskAlert
	Key     string
	Headers map[string]string
}

func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) alertMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var alert domain.RiskAlert
	require.NoError(t, json.Unmarshal(msg.Value, &alert), "unmarshal alert message")
	return alertMessage{Alert: alert, Key: string(msg.Key), Headers: headers}
}

// fixedScorer scores every row by its mass feature.
type fixedScorer struct{}

func (fixedScorer) Probability(x []float64) float64 { return x[2] / 100 }

type staticModels struct{ p *predict.Predictor }

func (s staticModels) Predictor() (*predict.Predictor, model.Metadata, error) {
	return s.p, model.Metadata{RunID: "integration"}, nil
}

// TestAlertWriter verifies a batch of alerts lands on the topic with its key
// and headers.
func TestAlertWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaAlertTopic: testAlertTopic}
	writer := kafka.NewAlertWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	at := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, writer.Publish(ctx, []domain.RiskAlert{
		{RunID: "run-1", Stockpile: "23", Grade: "ДР", Probability: 0.4, Threshold: 0.1, ForecastAt: at},
		{RunID: "run-1", Stockpile: "7", Probability: 0.2, Threshold: 0.1, ForecastAt: at},
	}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-alerts-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	first := readAlert(ctx, t, consumer)
	assert.Equal(t, "23", first.Key)
	assert.Equal(t, "ДР", first.Alert.Grade)
	assert.Equal(t, "run-1", first.Headers["run_id"])
	assert.Equal(t, at.Format(time.RFC3339), first.Headers["forecast_at"])

	second := readAlert(ctx, t, consumer)
	assert.Equal(t, "7", second.Key)
	assert.Empty(t, second.Alert.Grade)
}

// TestForecastPublishesAlerts wires the forecaster to a real broker and checks
// that only high-risk rows are announced.
func TestForecastPublishesAlerts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaAlertTopic: testAlertTopic}
	writer := kafka.NewAlertWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC))
	models := staticModels{p: predict.New(fixedScorer{}, domain.FitCategories([]string{"Б2", "ДР"}), discardLogger())}
	f := pipeline.NewForecaster(models, writer, report.NewBuilder(clock, 5), clock, discardLogger(), observability.NewMetricsForTesting())

	tbl := domain.Table{
		Header: append([]string{domain.ColStockpile}, domain.FeatureColumns...),
		Rows: [][]string{
			{"1", "ДР", "10", "5", "3", "0", "1", "3", "-5", "1010", "70"},
			{"2", "Б2", "20", "1", "60", "1", "2", "3", "-4", "1011", "71"},
			{"3", "ДР", "30", "0", "4", "2", "3", "3", "-3", "1020", "72"},
		},
	}
	out, err := f.Forecast(ctx, tbl, 0.5)
	require.NoError(t, err)
	require.Equal(t, 1, out.Summary.HighRisk)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-forecast-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	am := readAlert(ctx, t, consumer)
	assert.Equal(t, "2", am.Key)
	assert.Equal(t, out.RunID, am.Alert.RunID)
	assert.InDelta(t, 0.6, am.Alert.Probability, 1e-9)

	// No second alert.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected a single alert")
}
