package httpadapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/csvfile"
	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/pipeline"
	"github.com/couchcryptid/stockpile-fire-risk/internal/report"
)

// Forecaster scores an uploaded inference table.
type Forecaster interface {
	Forecast(ctx context.Context, t domain.Table, threshold float64) (*pipeline.Outcome, error)
}

// Reloader drops the cached model so the next request reads it from disk.
type Reloader interface {
	Reload()
}

// Options tune the forecast endpoint.
type Options struct {
	Threshold      float64
	MaxUploadBytes int64
}

// Server exposes health, readiness, metrics and forecast HTTP endpoints.
type Server struct {
	httpServer *http.Server
	forecaster Forecaster
	reloader   Reloader
	opts       Options
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /forecast and /model/reload routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, f Forecaster, r Reloader, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		forecaster: f,
		reloader:   r,
		opts:       opts,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /forecast", s.handleForecast)
	mux.HandleFunc("POST /model/reload", s.handleReload)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type prediction struct {
	Row         int     `json:"row"`
	Stockpile   string  `json:"stockpile"`
	Grade       string  `json:"grade,omitempty"`
	Probability float64 `json:"probability"`
	Label       int     `json:"label"`
}

type forecastResponse struct {
	RunID           string       `json:"run_id"`
	Threshold       float64      `json:"threshold"`
	Total           int          `json:"total"`
	HighRisk        int          `json:"high_risk"`
	MeanProbability float64      `json:"mean_probability"`
	MaxProbability  float64      `json:"max_probability"`
	Predictions     []prediction `json:"predictions"`
}

// handleForecast scores the CSV body. The result is the input CSV with
// probability and prediction columns, or a JSON summary when the client
// accepts application/json.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	threshold := s.opts.Threshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 1 {
			writeError(w, http.StatusBadRequest, errors.New("threshold must be a number in (0, 1]"))
			return
		}
		threshold = v
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	table, err := csvfile.ParseTable(bytes.NewReader(body), "request body")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.forecaster.Forecast(r.Context(), table, threshold)
	if err != nil {
		s.writeForecastError(w, err)
		return
	}

	if !strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("X-Run-ID", out.RunID)
		if err := csvfile.Encode(w, out.Forecast.Table); err != nil {
			s.logger.Error("write forecast csv", "error", err)
		}
		return
	}

	fc := out.Forecast
	gradeIdx := fc.Table.Index(domain.ColGrade)
	resp := forecastResponse{
		RunID:           out.RunID,
		Threshold:       fc.Threshold,
		Total:           out.Summary.Total,
		HighRisk:        out.Summary.HighRisk,
		MeanProbability: out.Summary.MeanProbability,
		MaxProbability:  out.Summary.MaxProbability,
		Predictions:     make([]prediction, len(fc.Probabilities)),
	}
	for i, p := range fc.Probabilities {
		resp.Predictions[i] = prediction{
			Row:         i + 1,
			Stockpile:   report.Entity(fc.Table, i),
			Grade:       strings.TrimSpace(fc.Table.Cell(i, gradeIdx)),
			Probability: p,
			Label:       fc.Labels[i],
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) writeForecastError(w http.ResponseWriter, err error) {
	var schema *domain.SchemaError
	switch {
	case errors.As(err, &schema):
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":   err.Error(),
			"missing": schema.Missing,
		})
	case errors.Is(err, domain.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Error("forecast failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("forecast failed"))
	}
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	s.reloader.Reload()
	s.logger.Info("model reload requested")
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "reloading"})
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
