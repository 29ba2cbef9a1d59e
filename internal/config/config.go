// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by MergeWithDefaults.
const (
	DefaultHTTPTimeoutSeconds    = 30
	DefaultCompanyTimeoutSeconds = 300
	DefaultConcurrency           = 1
	DefaultLockTTLSeconds        = 600
	DefaultAlertSubject          = "jobintel.alerts"
	DefaultUserAgent             = "Mozilla/5.0 (compatible; HiringSignals/1.0)"
)

// Config represents the CLI configuration. Values come from an optional JSON
// file, then the environment, then CLI flags; defaults fill what is left.
type Config struct {
	// Storage and messaging
	DatabaseURL  string `json:"database_url,omitempty" validate:"required,startswith=postgres"` // PostgreSQL connection URL
	RedisURL     string `json:"redis_url,omitempty" validate:"omitempty,startswith=redis"`      // Enables the per-company crawl lock
	NATSURL      string `json:"nats_url,omitempty" validate:"omitempty,startswith=nats"`        // Enables alert publishing
	AlertSubject string `json:"alert_subject,omitempty"`                                        // NATS subject prefix for alerts

	// HTTP
	HTTPTimeoutSeconds int    `json:"http_timeout_seconds,omitempty" validate:"gte=0,lte=600"`
	UserAgent          string `json:"user_agent,omitempty"`
	UseBrowser         bool   `json:"use_browser,omitempty"` // Use headless browser for SPA career pages

	// Collection
	CompanyTimeoutSeconds int `json:"company_timeout_seconds,omitempty" validate:"gte=0"`
	Concurrency           int `json:"concurrency,omitempty" validate:"gte=0,lte=64"`
	LockTTLSeconds        int `json:"lock_ttl_seconds,omitempty" validate:"gte=0"`

	// Behavior
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	MetricsAddr string `json:"metrics_addr,omitempty"` // Serve Prometheus metrics on this address
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads configuration from the environment. DATABASE_URL, REDIS_URL
// and NATS_URL are honored as-is; everything else uses the JOBINTEL_ prefix.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		NATSURL:      os.Getenv("NATS_URL"),
		AlertSubject: os.Getenv("JOBINTEL_ALERT_SUBJECT"),
		UserAgent:    os.Getenv("JOBINTEL_USER_AGENT"),
		MetricsAddr:  os.Getenv("JOBINTEL_METRICS_ADDR"),
	}

	var errs []error
	intVar := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	boolVar := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	intVar("JOBINTEL_HTTP_TIMEOUT_SECONDS", &cfg.HTTPTimeoutSeconds)
	intVar("JOBINTEL_COMPANY_TIMEOUT_SECONDS", &cfg.CompanyTimeoutSeconds)
	intVar("JOBINTEL_CONCURRENCY", &cfg.Concurrency)
	intVar("JOBINTEL_LOCK_TTL_SECONDS", &cfg.LockTTLSeconds)
	boolVar("JOBINTEL_USE_BROWSER", &cfg.UseBrowser)
	boolVar("JOBINTEL_VERBOSE", &cfg.Verbose)

	if err := errors.Join(errs...); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("'%s' failed '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults,
// then from the package defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.NATSURL == "" {
		result.NATSURL = defaults.NATSURL
	}
	if result.AlertSubject == "" {
		result.AlertSubject = firstNonEmpty(defaults.AlertSubject, DefaultAlertSubject)
	}
	if result.UserAgent == "" {
		result.UserAgent = firstNonEmpty(defaults.UserAgent, DefaultUserAgent)
	}
	if result.MetricsAddr == "" {
		result.MetricsAddr = defaults.MetricsAddr
	}

	// Int fields: use default if zero
	if result.HTTPTimeoutSeconds == 0 {
		result.HTTPTimeoutSeconds = firstPositive(defaults.HTTPTimeoutSeconds, DefaultHTTPTimeoutSeconds)
	}
	if result.CompanyTimeoutSeconds == 0 {
		result.CompanyTimeoutSeconds = firstPositive(defaults.CompanyTimeoutSeconds, DefaultCompanyTimeoutSeconds)
	}
	if result.Concurrency == 0 {
		result.Concurrency = firstPositive(defaults.Concurrency, DefaultConcurrency)
	}
	if result.LockTTLSeconds == 0 {
		result.LockTTLSeconds = firstPositive(defaults.LockTTLSeconds, DefaultLockTTLSeconds)
	}

	// Bool fields: true anywhere wins
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Load resolves the effective configuration: the JSON file at path (if any)
// over the environment over package defaults, then validates it.
func Load(path string) (Config, error) {
	env, err := FromEnv()
	if err != nil {
		return Config{}, err
	}

	file := &Config{}
	if path != "" {
		file, err = LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
	}

	cfg := file.MergeWithDefaults(env)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HTTPTimeout returns the fetch timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// CompanyTimeout returns the per-company crawl timeout as a duration.
func (c *Config) CompanyTimeout() time.Duration {
	return time.Duration(c.CompanyTimeoutSeconds) * time.Second
}

// LockTTL returns the crawl lock TTL as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
