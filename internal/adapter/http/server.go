// Package http exposes the aggregation service over HTTP: aggregation as
// JSON, rendering as PNG, export as CSV, plus health, readiness, and metrics
// endpoints.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/rainfall-map-service/internal/domain"
	"github.com/couchcryptid/rainfall-map-service/internal/service"
)

// Aggregator is the service surface the HTTP layer depends on.
type Aggregator interface {
	CheckReadiness(ctx context.Context) error
	Aggregate(ctx context.Context, req service.AggregateRequest) (*domain.AggregatedField, error)
	Render(ctx context.Context, req service.RenderRequest) ([]byte, error)
	Export(ctx context.Context, req service.AggregateRequest, w io.Writer) error
}

// Server exposes the aggregation API and operational endpoints.
type Server struct {
	httpServer *http.Server
	svc        Aggregator
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the v1 API and /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, svc Aggregator, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("POST /v1/aggregate", s.handleAggregate)
	mux.HandleFunc("GET /v1/render", s.handleRender)
	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

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

// aggregateRequest is the JSON body of POST /v1/aggregate.
type aggregateRequest struct {
	Dataset  string `json:"dataset"`
	Variable string `json:"variable,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Mode     string `json:"mode"`
}

// aggregateResponse serializes an AggregatedField. Missing cells are null,
// since JSON has no NaN.
type aggregateResponse struct {
	Variable          string       `json:"variable"`
	Mode              string       `json:"mode"`
	Start             string       `json:"start"`
	End               string       `json:"end"`
	TimeAxis          string       `json:"time_axis"`
	AmbiguousTimeAxis bool         `json:"ambiguous_time_axis,omitempty"`
	TimeSteps         int          `json:"time_steps"`
	Latitudes         []float64    `json:"latitudes"`
	Longitudes        []float64    `json:"longitudes"`
	Values            [][]*float64 `json:"values"`
	GeneratedAt       time.Time    `json:"generated_at"`
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var body aggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorKind(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	req, ok := s.parseRequest(w, body)
	if !ok {
		return
	}

	field, err := s.svc.Aggregate(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(field))
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, ok := s.parseRequest(w, aggregateRequest{
		Dataset:  q.Get("dataset"),
		Variable: q.Get("variable"),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Mode:     q.Get("mode"),
	})
	if !ok {
		return
	}

	renderReq := service.RenderRequest{AggregateRequest: req}
	for param, dst := range map[string]**float64{"min": &renderReq.ColorMin, "max": &renderReq.ColorMax} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeErrorKind(w, http.StatusBadRequest, "bad_request", "invalid "+param+" parameter")
			return
		}
		*dst = &v
	}

	img, err := s.svc.Render(r.Context(), renderReq)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(img) //nolint:errcheck // client gone, nothing to do
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, ok := s.parseRequest(w, aggregateRequest{
		Dataset:  q.Get("dataset"),
		Variable: q.Get("variable"),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Mode:     q.Get("mode"),
	})
	if !ok {
		return
	}

	// Buffer so an aggregation failure still produces a proper error
	// response instead of a truncated CSV.
	var buf bytes.Buffer
	if err := s.svc.Export(r.Context(), req, &buf); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="processed_rainfall_data.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client gone, nothing to do
}

// parseRequest validates the wire-level request. Mode and window semantics
// are still enforced by the domain; this only rejects unparseable input.
func (s *Server) parseRequest(w http.ResponseWriter, body aggregateRequest) (service.AggregateRequest, bool) {
	if body.Dataset == "" {
		writeErrorKind(w, http.StatusBadRequest, "bad_request", "dataset is required")
		return service.AggregateRequest{}, false
	}
	start, err := time.Parse("2006-01-02", body.Start)
	if err != nil {
		writeErrorKind(w, http.StatusBadRequest, "bad_request", "invalid start date: use YYYY-MM-DD")
		return service.AggregateRequest{}, false
	}
	end, err := time.Parse("2006-01-02", body.End)
	if err != nil {
		writeErrorKind(w, http.StatusBadRequest, "bad_request", "invalid end date: use YYYY-MM-DD")
		return service.AggregateRequest{}, false
	}
	mode, err := domain.ParseMode(body.Mode)
	if err != nil {
		s.writeError(w, err)
		return service.AggregateRequest{}, false
	}
	return service.AggregateRequest{
		Dataset:  body.Dataset,
		Variable: body.Variable,
		Start:    start,
		End:      end,
		Mode:     mode,
	}, true
}

func toResponse(field *domain.AggregatedField) aggregateResponse {
	values := make([][]*float64, len(field.Lats))
	for i := range field.Lats {
		row := make([]*float64, len(field.Lons))
		for j := range field.Lons {
			v := field.Value(i, j)
			if v == v { // not NaN
				row[j] = &v
			}
		}
		values[i] = row
	}
	return aggregateResponse{
		Variable:          field.Variable,
		Mode:              string(field.Mode),
		Start:             field.Window.Start.Format("2006-01-02"),
		End:               field.Window.End.Format("2006-01-02"),
		TimeAxis:          field.TimeAxis,
		AmbiguousTimeAxis: field.AmbiguousTimeAxis,
		TimeSteps:         field.TimeSteps,
		Latitudes:         field.Lats,
		Longitudes:        field.Lons,
		Values:            values,
		GeneratedAt:       field.GeneratedAt,
	}
}

// writeError maps domain errors to HTTP statuses: client input problems are
// 400, schema/window mismatches against a real dataset are 422, unknown
// datasets are 404, everything else is 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		coordErr  *domain.CoordinateNotFoundError
		varErr    *domain.VariableNotFoundError
		emptyErr  *domain.EmptySliceError
		modeErr   *domain.UnsupportedModeError
		windowErr *domain.InvalidWindowError
	)
	switch {
	case errors.As(err, &modeErr):
		writeErrorKind(w, http.StatusBadRequest, "unsupported_mode", err.Error())
	case errors.As(err, &windowErr):
		writeErrorKind(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.As(err, &coordErr):
		writeErrorKind(w, http.StatusUnprocessableEntity, "coordinate_not_found", err.Error())
	case errors.As(err, &varErr):
		writeErrorKind(w, http.StatusUnprocessableEntity, "variable_not_found", err.Error())
	case errors.As(err, &emptyErr):
		writeErrorKind(w, http.StatusUnprocessableEntity, "empty_slice", err.Error())
	case errors.Is(err, fs.ErrNotExist):
		writeErrorKind(w, http.StatusNotFound, "not_found", "dataset not found")
	default:
		s.logger.Error("request failed", "error", err)
		writeErrorKind(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeErrorKind(w http.ResponseWriter, status int, kind, detail string) {
	writeJSON(w, status, map[string]string{"error": kind, "detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
