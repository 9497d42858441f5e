package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DataDir is the directory containing NetCDF rainfall datasets.
	// Requests refer to datasets by bare filename within it.
	DataDir          string
	DatasetCacheSize int
	DefaultVariable  string

	// Boundary overlay configuration. An empty BoundaryFile means the
	// service renders without administrative boundaries; this is an explicit
	// deployment choice, not a silent fallback.
	BoundaryFile string
	BoundarySR   string

	// Default color scale for rendering, in the variable's units (mm).
	ColorMin float64
	ColorMax float64
	// RenderWidth is the output image width in pixels; height follows the
	// grid's aspect ratio.
	RenderWidth int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("DATASET_CACHE_SIZE", 8)
	if err != nil {
		return nil, err
	}

	colorMin, err := parseFloat("COLOR_MIN", 0)
	if err != nil {
		return nil, err
	}
	colorMax, err := parseFloat("COLOR_MAX", 1200)
	if err != nil {
		return nil, err
	}

	renderWidth, err := parseInt("RENDER_WIDTH", 900)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:          envOrDefault("DATA_DIR", "data"),
		DatasetCacheSize: cacheSize,
		DefaultVariable:  envOrDefault("DEFAULT_VARIABLE", "RAINFALL"),

		BoundaryFile: os.Getenv("BOUNDARY_FILE"),
		BoundarySR:   envOrDefault("BOUNDARY_SR", "+proj=longlat +datum=WGS84 +no_defs"),

		ColorMin:    colorMin,
		ColorMax:    colorMax,
		RenderWidth: renderWidth,
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.DefaultVariable == "" {
		return nil, errors.New("DEFAULT_VARIABLE is required")
	}
	if cfg.DatasetCacheSize <= 0 {
		return nil, errors.New("DATASET_CACHE_SIZE must be positive")
	}
	if cfg.RenderWidth <= 0 {
		return nil, errors.New("RENDER_WIDTH must be positive")
	}
	if cfg.ColorMax < cfg.ColorMin {
		return nil, errors.New("COLOR_MAX must not be below COLOR_MIN")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
