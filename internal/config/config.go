// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/pagesnap/pagesnap-cli/internal/observability"
)

// DefaultAPIEndpoint is where a freshly installed client points until the
// user persists their own endpoint.
const DefaultAPIEndpoint = "http://localhost:8000/api/ingest/extension"

// Config holds the entire application configuration.
type Config struct {
	Logger  observability.Config `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig        `mapstructure:"browser" yaml:"browser"`
	Capture CaptureConfig        `mapstructure:"capture" yaml:"capture"`
	Relay   RelayConfig          `mapstructure:"relay" yaml:"relay"`
	Fetch   FetchConfig          `mapstructure:"fetch" yaml:"fetch"`
	Ingest  IngestConfig         `mapstructure:"ingest" yaml:"ingest"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StabilizeWait     time.Duration `mapstructure:"stabilize_wait" yaml:"stabilize_wait"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// CaptureConfig tunes the page capture engine.
type CaptureConfig struct {
	// ImageLoadTimeout bounds the wait for a still-loading image before the
	// element is skipped.
	ImageLoadTimeout time.Duration `mapstructure:"image_load_timeout" yaml:"image_load_timeout"`
	// MinImageDimension is the inclusion threshold for non-inline images;
	// both natural dimensions must reach it. A heuristic, not an invariant.
	MinImageDimension int `mapstructure:"min_image_dimension" yaml:"min_image_dimension"`
	// FetchConcurrency bounds parallel remote image inlining.
	FetchConcurrency int `mapstructure:"fetch_concurrency" yaml:"fetch_concurrency"`
}

// RelayConfig tunes the upload leg.
type RelayConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// ErrorBodyLimit caps how many characters of an error response body are
	// echoed into the failure message.
	ErrorBodyLimit int `mapstructure:"error_body_limit" yaml:"error_body_limit"`
}

// FetchConfig tunes the credential-less asset fetcher.
type FetchConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	// RequestsPerSecond throttles outbound asset fetches.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// IngestConfig configures the companion ingestion server.
type IngestConfig struct {
	Addr    string `mapstructure:"addr" yaml:"addr"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// SetDefaults installs default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagesnap-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.stabilize_wait", "2s")
	v.SetDefault("browser.user_agent", "")

	// -- Capture --
	v.SetDefault("capture.image_load_timeout", "5s")
	v.SetDefault("capture.min_image_dimension", 300)
	v.SetDefault("capture.fetch_concurrency", 4)

	// -- Relay --
	v.SetDefault("relay.request_timeout", "30s")
	v.SetDefault("relay.error_body_limit", 100)

	// -- Fetch --
	v.SetDefault("fetch.request_timeout", "15s")
	v.SetDefault("fetch.max_body_bytes", 20*1024*1024)
	v.SetDefault("fetch.requests_per_second", 8.0)

	// -- Ingest --
	v.SetDefault("ingest.addr", ":8000")
	v.SetDefault("ingest.data_dir", "collected_data")
}

// NewDefaultConfig returns a config populated purely from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewFromViper builds and validates a config from a viper instance that has
// already read files/env/flags.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks for sane values.
func (c *Config) Validate() error {
	if c.Capture.ImageLoadTimeout <= 0 {
		return fmt.Errorf("capture.image_load_timeout must be a positive duration")
	}
	if c.Capture.MinImageDimension < 0 {
		return fmt.Errorf("capture.min_image_dimension must not be negative")
	}
	if c.Capture.FetchConcurrency <= 0 {
		return fmt.Errorf("capture.fetch_concurrency must be a positive integer")
	}
	if c.Relay.ErrorBodyLimit <= 0 {
		return fmt.Errorf("relay.error_body_limit must be a positive integer")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be a positive integer")
	}
	return nil
}

// ValidateEndpoint rejects endpoints the relay could not possibly reach
// before any capture side effect occurs.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("api endpoint is not configured")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("api endpoint is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api endpoint must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("api endpoint is missing a host")
	}
	return nil
}
