// Package config is the engine's koanf-backed configuration layer.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level configuration for a simulation run.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
	Solver   SolverConfig   `koanf:"solver"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
}

// AppConfig carries run-identifying metadata.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"` // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// SolverConfig is the discriminated solver record: it names the
// driver and carries its settings.
type SolverConfig struct {
	// Driver selects the solver backend: "simplex", "interior_point", or
	// "interior_point_gpu".
	Driver string `koanf:"driver"`

	// Threads is the worker count for scenario-level simplex solves. It
	// is loaded from configuration only: solver.NewFromConfig does not
	// read it, and no solver.Pool is sized from it.
	Threads int `koanf:"threads"`

	// Parallel is the scenario-level parallelism flag for the simplex
	// driver. It is loaded from configuration only: solver.NewFromConfig
	// does not read it.
	Parallel bool `koanf:"parallel"`

	// PrimalTolerance, DualTolerance, OptimalityTolerance are the
	// split interior-point tolerances.
	PrimalTolerance     float64 `koanf:"primal_tolerance"`
	DualTolerance       float64 `koanf:"dual_tolerance"`
	OptimalityTolerance float64 `koanf:"optimality_tolerance"`

	// MaxIterations caps interior-point iterations for each scenario of a
	// batch.
	MaxIterations int `koanf:"max_iterations"`

	// NumChunks controls host/device synchronisation granularity for
	// the (stubbed) GPU interior-point driver.
	NumChunks int `koanf:"num_chunks"`

	// SIMDWidth is the scenario-batching width for the CPU interior-point driver.
	SIMDWidth int `koanf:"simd_width"`

	// ScalarType names f32 or f64 IPM arithmetic and is checked by
	// Validate; solver.NewFromConfig does not read it, and the
	// interior-point driver computes in float64.
	ScalarType string `koanf:"scalar_type"`
}

// DatabaseConfig configures the Postgres-backed recorder (pkg/recorder).
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig configures the Redis-backed data-table/timeseries cache
// (pkg/datatable).
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // in-memory fallback
}

// Address returns the cache server address.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	validDrivers := map[string]bool{"simplex": true, "interior_point": true, "interior_point_gpu": true}
	if c.Solver.Driver != "" && !validDrivers[c.Solver.Driver] {
		errs = append(errs, fmt.Sprintf("solver.driver must be one of: simplex, interior_point, interior_point_gpu, got %s", c.Solver.Driver))
	}

	validScalars := map[string]bool{"": true, "f32": true, "f64": true}
	if !validScalars[c.Solver.ScalarType] {
		errs = append(errs, fmt.Sprintf("solver.scalar_type must be one of: f32, f64, got %s", c.Solver.ScalarType))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the run targets a development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the run targets a production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}

// Default returns a Config populated with the engine's defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "hydroengine", Version: "dev", Environment: "development"},
		Log: LogConfig{Level: "info", Format: "json", Output: "stdout"},
		Metrics: MetricsConfig{
			Enabled: true, Port: 9100, Path: "/metrics",
			Namespace: "hydroengine", Subsystem: "runloop",
		},
		Tracing: TracingConfig{Enabled: false, ServiceName: "hydroengine", SampleRate: 1.0},
		Solver: SolverConfig{
			Driver:              "simplex",
			Threads:             4,
			Parallel:            true,
			PrimalTolerance:     1e-6,
			DualTolerance:       1e-6,
			OptimalityTolerance: 1e-6,
			MaxIterations:       200,
			NumChunks:           1,
			SIMDWidth:           1,
			ScalarType:          "f64",
		},
		Cache: CacheConfig{Driver: "memory", DefaultTTL: 10 * time.Minute},
	}
}
