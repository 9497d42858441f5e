package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/rainfall-map-service/internal/adapter/http"
	"github.com/couchcryptid/rainfall-map-service/internal/adapter/netcdf"
	"github.com/couchcryptid/rainfall-map-service/internal/adapter/shapefile"
	"github.com/couchcryptid/rainfall-map-service/internal/config"
	"github.com/couchcryptid/rainfall-map-service/internal/observability"
	"github.com/couchcryptid/rainfall-map-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Boundary overlay is an explicit deployment choice: no BOUNDARY_FILE
	// means maps render without one.
	var boundaries *shapefile.BoundarySet
	if cfg.BoundaryFile != "" {
		boundaries, err = shapefile.Load(cfg.BoundaryFile, cfg.BoundarySR, logger)
		if err != nil {
			logger.Error("failed to load boundaries", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("no boundary file configured, rendering without overlay")
	}

	loader := netcdf.NewCachedLoader(netcdf.NewLoader(logger), cfg.DatasetCacheSize, metrics)

	svc := service.New(loader, boundaries, service.Options{
		DataDir:         cfg.DataDir,
		DefaultVariable: cfg.DefaultVariable,
		ColorMin:        cfg.ColorMin,
		ColorMax:        cfg.ColorMax,
		RenderWidth:     cfg.RenderWidth,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
