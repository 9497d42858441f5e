// Package service orchestrates one aggregation request end to end: load the
// dataset, resolve coordinates, validate the window, reduce, and hand the
// result to the renderer or exporter. Each request is fully resolved before
// control returns; no state is shared between requests beyond the dataset
// cache owned by the loader.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rainfall-map-service/internal/adapter/export"
	"github.com/couchcryptid/rainfall-map-service/internal/adapter/render"
	"github.com/couchcryptid/rainfall-map-service/internal/adapter/shapefile"
	"github.com/couchcryptid/rainfall-map-service/internal/domain"
	"github.com/couchcryptid/rainfall-map-service/internal/observability"
)

// DatasetLoader produces a GriddedField from a file path.
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*domain.GriddedField, error)
}

// Options carries the service defaults taken from configuration.
type Options struct {
	DataDir         string
	DefaultVariable string
	ColorMin        float64
	ColorMax        float64
	RenderWidth     int
}

// Service handles aggregation, render, and export requests.
type Service struct {
	loader     DatasetLoader
	boundaries *shapefile.BoundarySet
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates a Service. A nil boundary set renders maps without overlay.
func New(loader DatasetLoader, boundaries *shapefile.BoundarySet, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		loader:     loader,
		boundaries: boundaries,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// AggregateRequest identifies one aggregation: a dataset file within the
// data directory, a value variable, an inclusive date window, and a mode.
type AggregateRequest struct {
	Dataset  string
	Variable string
	Start    time.Time
	End      time.Time
	Mode     domain.AggregationMode
}

// RenderRequest is an aggregation plus color-scale parameters. Zero Min/Max
// fall back to the configured defaults; Min == Max derives the range from
// the data.
type RenderRequest struct {
	AggregateRequest
	ColorMin *float64
	ColorMax *float64
}

// CheckReadiness returns nil once the service has produced at least one
// aggregation, or an error describing why it is not yet ready.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no aggregation has been served yet")
	}
	return nil
}

// Aggregate resolves, validates, slices, and reduces one request.
func (s *Service) Aggregate(ctx context.Context, req AggregateRequest) (*domain.AggregatedField, error) {
	start := time.Now()
	result, err := s.aggregate(ctx, req)

	mode := string(req.Mode)
	if err != nil {
		s.metrics.AggregationRequests.WithLabelValues(mode, "error").Inc()
		return nil, err
	}
	s.metrics.AggregationRequests.WithLabelValues(mode, "success").Inc()
	s.metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	s.ready.Store(true)
	s.metrics.ServiceReady.Set(1)
	return result, nil
}

func (s *Service) aggregate(ctx context.Context, req AggregateRequest) (*domain.AggregatedField, error) {
	variable := req.Variable
	if variable == "" {
		variable = s.opts.DefaultVariable
	}

	window, err := domain.NewTimeWindow(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	// Requests name datasets by bare filename; anything else is flattened
	// to its basename so requests cannot escape the data directory.
	path := filepath.Join(s.opts.DataDir, filepath.Base(req.Dataset))
	field, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	result, err := domain.Aggregate(field, variable, window, req.Mode)
	if err != nil {
		return nil, err
	}

	if result.AmbiguousTimeAxis {
		s.metrics.AmbiguousTimeAxis.Inc()
		s.logger.Warn("dataset has multiple recognized time-axis spellings",
			"dataset", req.Dataset, "picked", result.TimeAxis)
	}
	s.logger.Info("aggregation complete",
		"dataset", req.Dataset,
		"variable", variable,
		"mode", req.Mode,
		"time_steps", result.TimeSteps,
		"cells", len(result.Lats)*len(result.Lons),
	)
	return result, nil
}

// Render aggregates and draws the result as a choropleth PNG.
func (s *Service) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	field, err := s.Aggregate(ctx, req.AggregateRequest)
	if err != nil {
		return nil, err
	}

	opts := render.Options{
		ColorMin: s.opts.ColorMin,
		ColorMax: s.opts.ColorMax,
		Width:    s.opts.RenderWidth,
	}
	if req.ColorMin != nil {
		opts.ColorMin = *req.ColorMin
	}
	if req.ColorMax != nil {
		opts.ColorMax = *req.ColorMax
	}

	img, err := render.PNG(field, s.boundaries, opts)
	if err != nil {
		return nil, err
	}
	s.metrics.Renders.Inc()
	return img, nil
}

// Export aggregates and writes the result as CSV rows.
func (s *Service) Export(ctx context.Context, req AggregateRequest, w io.Writer) error {
	field, err := s.Aggregate(ctx, req)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(w, field); err != nil {
		return err
	}
	s.metrics.Exports.Inc()
	return nil
}
