package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/httpadapter"
	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/model"
	"github.com/couchcryptid/stockpile-fire-risk/internal/observability"
	"github.com/couchcryptid/stockpile-fire-risk/internal/pipeline"
	"github.com/couchcryptid/stockpile-fire-risk/internal/predict"
	"github.com/couchcryptid/stockpile-fire-risk/internal/report"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockReloader struct {
	calls int
}

func (m *mockReloader) Reload() { m.calls++ }

// massScorer maps the mass feature onto [0, 1].
type massScorer struct{}

func (massScorer) Probability(x []float64) float64 { return x[2] / 100 }

type stubModels struct {
	err error
}

func (s stubModels) Predictor() (*predict.Predictor, model.Metadata, error) {
	if s.err != nil {
		return nil, model.Metadata{}, s.err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return predict.New(massScorer{}, domain.FitCategories([]string{"Б2", "ДР"}), logger), model.Metadata{}, nil
}

func newTestServer(readyErr, modelErr error) (*httpadapter.Server, *mockReloader) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	f := pipeline.NewForecaster(stubModels{err: modelErr}, nil, report.NewBuilder(clock, 5), clock, logger, observability.NewMetricsForTesting())
	reloader := &mockReloader{}
	opts := httpadapter.Options{Threshold: 0.35, MaxUploadBytes: 4096}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, f, reloader, opts, logger), reloader
}

func inferenceCSV() string {
	header := append([]string{domain.ColStockpile}, domain.FeatureColumns...)
	return strings.Join(header, ",") + "\n" +
		"1,ДР,10,5,30,0,1,3,-5,1010,70\n" +
		"2,Б2,20,1,40,1,2,3,-4,1011,71\n" +
		"3,ДР,30,0,5,2,3,3,-3,1020,72\n"
}

func postForecast(srv *httpadapter.Server, target, body string, accept string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(fmt.Errorf("%w: no trained model", domain.ErrModelUnavailable), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestForecastJSON(t *testing.T) {
	srv, _ := newTestServer(nil, nil)

	rec := postForecast(srv, "/forecast", inferenceCSV(), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		RunID       string  `json:"run_id"`
		Threshold   float64 `json:"threshold"`
		Total       int     `json:"total"`
		HighRisk    int     `json:"high_risk"`
		Predictions []struct {
			Row         int     `json:"row"`
			Stockpile   string  `json:"stockpile"`
			Grade       string  `json:"grade"`
			Probability float64 `json:"probability"`
			Label       int     `json:"label"`
		} `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.RunID)
	assert.Equal(t, 0.35, body.Threshold)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 1, body.HighRisk)
	require.Len(t, body.Predictions, 3)
	assert.Equal(t, "2", body.Predictions[1].Stockpile)
	assert.Equal(t, "Б2", body.Predictions[1].Grade)
	assert.Equal(t, 1, body.Predictions[1].Label)
	assert.InDelta(t, 0.05, body.Predictions[2].Probability, 1e-9)
}

func TestForecastThresholdParam(t *testing.T) {
	srv, _ := newTestServer(nil, nil)

	rec := postForecast(srv, "/forecast?threshold=0.1", inferenceCSV(), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"high_risk":2`)

	rec = postForecast(srv, "/forecast?threshold=2", inferenceCSV(), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastCSV(t *testing.T) {
	srv, _ := newTestServer(nil, nil)

	for _, accept := range []string{"", "text/csv", "*/*"} {
		t.Run("accept "+accept, func(t *testing.T) {
			rec := postForecast(srv, "/forecast", inferenceCSV(), accept)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

			lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
			require.Len(t, lines, 4)
			assert.True(t, strings.HasSuffix(lines[0], domain.ColProbability+","+domain.ColPrediction))
			assert.True(t, strings.HasSuffix(lines[2], ",0.4,1"))
		})
	}
}

func TestForecastMissingColumns(t *testing.T) {
	srv, _ := newTestServer(nil, nil)

	rec := postForecast(srv, "/forecast", domain.ColGrade+",other\nДР,1\n", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Missing, len(domain.FeatureColumns)-1)
}

func TestForecastEmptyBody(t *testing.T) {
	srv, _ := newTestServer(nil, nil)

	rec := postForecast(srv, "/forecast", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastTooLarge(t *testing.T) {
	srv, _ := newTestServer(nil, nil)

	rec := postForecast(srv, "/forecast", strings.Repeat("x", 5000), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestForecastModelUnavailable(t *testing.T) {
	srv, _ := newTestServer(nil, fmt.Errorf("%w: no trained model", domain.ErrModelUnavailable))

	rec := postForecast(srv, "/forecast", inferenceCSV(), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestModelReload(t *testing.T) {
	srv, reloader := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/model/reload", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, reloader.calls)
}
