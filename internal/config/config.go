// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and CARDIOVIZ_* env vars on top.
// - Validation failures wrap ErrInvalidConfig; loader failures wrap ErrLoadConfig.
package config

// Source kinds accepted by the Source key.
const (
	SourceMock       = "mock"
	SourceHealthLake = "healthlake"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// Source selects the data provider: mock or healthlake.
	Source string `koanf:"source"`

	// DatastoreID and Region identify the external data store. Opaque to the core.
	DatastoreID string `koanf:"datastore_id"`
	Region      string `koanf:"region"`

	// HealthLakeEndpoint overrides https://healthlake.{region}.amazonaws.com.
	HealthLakeEndpoint string `koanf:"healthlake_endpoint"`

	// Static AWS credentials for SigV4 signing. Requests are unsigned when empty.
	AWSAccessKeyID     string `koanf:"aws_access_key_id"`
	AWSSecretAccessKey string `koanf:"aws_secret_access_key"`
	AWSSessionToken    string `koanf:"aws_session_token"`

	// MockLatencyMinMS and MockLatencyMaxMS bound the simulated fetch delay.
	MockLatencyMinMS int `koanf:"mock_latency_min_ms"`
	MockLatencyMaxMS int `koanf:"mock_latency_max_ms"`

	// FetchTimeoutMS bounds a single fetch; 0 disables the timeout.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// RefreshIntervalMS schedules periodic refreshes; 0 disables the scheduler.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`

	// RefreshQueueSize bounds pending refresh requests.
	RefreshQueueSize int `koanf:"refresh_queue_size"`

	// DedupeSize bounds the remembered refresh request ids.
	DedupeSize int `koanf:"dedupe_size"`

	// DefaultPanels lists the panels visible at startup.
	DefaultPanels []string `koanf:"default_panels"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9090",
		Source:            SourceMock,
		DatastoreID:       "b4e3d8f5c2a1b9e7d6f8a2c4e1b3d5f7",
		Region:            "us-west-2",
		MockLatencyMinMS:  1000,
		MockLatencyMaxMS:  1000,
		FetchTimeoutMS:    30_000,
		RefreshIntervalMS: 0,
		RefreshQueueSize:  1,
		DedupeSize:        1024,
		DefaultPanels:     []string{"blood_pressure", "heart_rate"},
	}
}
