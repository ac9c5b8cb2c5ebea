// Package config loads Routecast process configuration from the environment.
//
// Values resolve in priority order: process environment, then an optional .env
// file in the working directory, then the defaults declared on the struct tags.
// A missing required value or a value outside its allowed range fails startup.
package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/database"
	"github.com/routecast/routecast/internal/telemetry"
)

// Config is the top-level configuration shared by the API and the worker.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development" validate:"oneof=development test staging production"`
	Port        string `envconfig:"APP_PORT" default:"8080" validate:"required,numeric"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	RequireTLS  bool   `envconfig:"REQUIRE_TLS" default:"false"`

	Telemetry TelemetryConfig
	Database  DatabaseConfig
	Mapbox    MapboxConfig
	NOAA      NOAAConfig
	Overpass  OverpassConfig
	Summary   SummaryConfig
	Valkey    ValkeyConfig
	Engine    EngineConfig
	Worker    WorkerConfig
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool          `envconfig:"OTEL_ENABLED" default:"false"`
	OTLPEndpoint   string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	Insecure       bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	SampleRatio    float64       `envconfig:"OTEL_TRACES_SAMPLER_RATIO" default:"1" validate:"min=0,max=1"`
	MetricInterval time.Duration `envconfig:"OTEL_METRIC_EXPORT_INTERVAL" default:"15s"`
}

// DatabaseConfig holds PostgreSQL connection settings. With Enabled false the
// services keep history and favorites in memory.
type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"true"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432" validate:"min=1,max=65535"`
	User            string        `envconfig:"DB_USER" default:"routecast"`
	Password        string        `envconfig:"DB_PASSWORD" default:"routecast"`
	Name            string        `envconfig:"DB_NAME" default:"routecast"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25" validate:"min=1,max=1000"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5" validate:"min=0,max=1000"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	Migrate         bool          `envconfig:"DB_MIGRATE" default:"true"`
}

// MapboxConfig configures directions and geocoding.
type MapboxConfig struct {
	AccessToken string `envconfig:"MAPBOX_ACCESS_TOKEN" validate:"required"`
	BaseURL     string `envconfig:"MAPBOX_BASE_URL" validate:"omitempty,url"`
	Country     string `envconfig:"MAPBOX_COUNTRY" default:"us" validate:"omitempty,len=2"`
}

// NOAAConfig configures the National Weather Service client and weather caching.
type NOAAConfig struct {
	BaseURL       string        `envconfig:"NOAA_BASE_URL" validate:"omitempty,url"`
	UserAgent     string        `envconfig:"NOAA_USER_AGENT" default:"Routecast/2.0 (ops@routecast.app)"`
	CacheTTL      time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"10m"`
	AlertCacheTTL time.Duration `envconfig:"ALERT_CACHE_TTL" default:"5m"`
}

// OverpassConfig configures low-clearance structure lookups.
type OverpassConfig struct {
	Enabled bool   `envconfig:"OVERPASS_ENABLED" default:"true"`
	BaseURL string `envconfig:"OVERPASS_BASE_URL" validate:"omitempty,url"`
}

// SummaryConfig configures the language model used for trip summaries.
// An empty API key disables generation and reports carry the fallback text.
type SummaryConfig struct {
	APIKey      string        `envconfig:"SUMMARY_API_KEY"`
	BaseURL     string        `envconfig:"SUMMARY_BASE_URL" validate:"omitempty,url"`
	Model       string        `envconfig:"SUMMARY_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int           `envconfig:"SUMMARY_MAX_TOKENS" default:"300" validate:"min=1,max=4096"`
	Temperature float32       `envconfig:"SUMMARY_TEMPERATURE" default:"0.7" validate:"min=0,max=2"`
	Timeout     time.Duration `envconfig:"SUMMARY_TIMEOUT" default:"8s"`
}

// ValkeyConfig enables the shared weather cache when Addr is set.
type ValkeyConfig struct {
	Addr   string `envconfig:"VALKEY_ADDR"`
	Prefix string `envconfig:"VALKEY_PREFIX" default:"routecast:weather"`
}

// EngineConfig holds the route evaluation tunables.
type EngineConfig struct {
	SampleIntervalMiles float64       `envconfig:"SAMPLE_INTERVAL_MILES" default:"50" validate:"gt=0"`
	AverageSpeedMPH     float64       `envconfig:"AVERAGE_SPEED_MPH" default:"55" validate:"gt=0"`
	EvaluationTimeout   time.Duration `envconfig:"EVALUATION_TIMEOUT" default:"25s"`
	MaxConcurrency      int           `envconfig:"MAX_CONCURRENCY" default:"8" validate:"min=1,max=64"`
}

// WorkerConfig configures the background job worker.
type WorkerConfig struct {
	ProjectID      string        `envconfig:"PUBSUB_PROJECT_ID"`
	SubscriptionID string        `envconfig:"PUBSUB_SUBSCRIPTION" default:"routecast-jobs"`
	Concurrency    int           `envconfig:"WORKER_CONCURRENCY" default:"3" validate:"min=1,max=32"`
	JobTimeout     time.Duration `envconfig:"WORKER_JOB_TIMEOUT" default:"2m"`
	HealthPort     string        `envconfig:"WORKER_HEALTH_PORT" default:"8081" validate:"required,numeric"`
	ProbeOrigin    string        `envconfig:"WORKER_PROBE_ORIGIN" default:"Denver, CO"`
	ProbeDest      string        `envconfig:"WORKER_PROBE_DESTINATION" default:"Boulder, CO"`
}

// DatabaseConnection converts the settings for database.Connect.
func (c *Config) DatabaseConnection() database.Config {
	return database.Config{
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Name,
		SSLMode:         c.Database.SSLMode,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// TelemetrySettings converts the settings for telemetry.Init.
func (c *Config) TelemetrySettings(serviceName, version string) telemetry.Config {
	return telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.Telemetry.OTLPEndpoint,
		Insecure:       c.Telemetry.Insecure,
		Enabled:        c.Telemetry.Enabled,
		SampleRatio:    c.Telemetry.SampleRatio,
		MetricInterval: c.Telemetry.MetricInterval,
	}
}

// Level returns the zerolog level for LogLevel.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// ErrorType categorizes configuration loading failures.
type ErrorType string

const (
	ErrParsing    ErrorType = "PARSING_FAILED"
	ErrValidation ErrorType = "VALIDATION_FAILED"
)

// Error is returned by Load.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
