// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/scheduler"
)

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings
	HTTP struct {
		Address string `yaml:"address"`
		Port    string `yaml:"port"`
	} `yaml:"http"`

	// Cache store settings
	Cache struct {
		Dir string `yaml:"dir"`
	} `yaml:"cache"`

	// Mapping store backing files
	Mapping struct {
		URLsFile    string `yaml:"urls_file"`
		RecordsFile string `yaml:"records_file"`
	} `yaml:"mapping"`

	// Upstream fetch settings
	Fetch struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"fetch"`

	// Circuit breaker settings for upstream hosts
	CircuitBreaker struct {
		FailureThreshold int           `yaml:"failure_threshold"`
		Timeout          time.Duration `yaml:"timeout"`
		HalfOpenRequests int           `yaml:"half_open_requests"`
	} `yaml:"circuit_breaker"`

	// Publication scheduler settings
	Scheduler scheduler.Config `yaml:"scheduler"`

	// Background refresh sweep settings
	Refresh struct {
		Enabled bool           `yaml:"enabled"`
		Tier    scheduler.Tier `yaml:"tier"`
	} `yaml:"refresh"`

	// Logging settings
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with sensible defaults for every field.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Address = "127.0.0.1"
	cfg.HTTP.Port = "8080"
	cfg.Cache.Dir = "data/images"
	cfg.Mapping.URLsFile = "data/image-urls.json"
	cfg.Mapping.RecordsFile = "data/image-records.json"
	cfg.Fetch.Timeout = 30 * time.Second
	cfg.CircuitBreaker.FailureThreshold = 5
	cfg.CircuitBreaker.Timeout = 30 * time.Second
	cfg.CircuitBreaker.HalfOpenRequests = 1
	cfg.Scheduler = scheduler.DefaultConfig()
	cfg.Refresh.Enabled = true
	cfg.Refresh.Tier = scheduler.TierStable
	cfg.LogLevel = "INFO"
	return cfg
}

// Load reads the configuration from a YAML file, falling back to
// defaults when the file is absent, then applies environment variable
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Resolve relative paths so a working-directory change after startup
	// cannot move the cache out from under us.
	for _, p := range []*string{&cfg.Cache.Dir, &cfg.Mapping.URLsFile, &cfg.Mapping.RecordsFile} {
		if !filepath.IsAbs(*p) {
			abs, err := filepath.Abs(*p)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve path %s: %w", *p, err)
			}
			*p = abs
		}
	}

	return cfg, nil
}

// applyEnvOverrides lets the environment override individual settings.
func (c *Config) applyEnvOverrides() error {
	p := &envParser{}

	p.parseString("HTTP_ADDRESS", &c.HTTP.Address)
	p.parseString("HTTP_PORT", &c.HTTP.Port)
	p.parseString("CACHE_DIR", &c.Cache.Dir)
	p.parseString("MAPPING_URLS_FILE", &c.Mapping.URLsFile)
	p.parseString("MAPPING_RECORDS_FILE", &c.Mapping.RecordsFile)
	p.parseDuration("FETCH_TIMEOUT", &c.Fetch.Timeout)
	p.parseString("LOG_LEVEL", &c.LogLevel)
	p.parseString("SCHEDULER_TIMEZONE", &c.Scheduler.Timezone)

	if len(p.errors) > 0 {
		return fmt.Errorf("invalid environment overrides: %s", strings.Join(p.errors, "; "))
	}
	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.HTTP.Address == "" {
		errs = append(errs, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errs = append(errs, "HTTP port is required")
	}

	if c.Cache.Dir == "" {
		errs = append(errs, "cache directory is required")
	}
	if c.Mapping.URLsFile == "" {
		errs = append(errs, "mapping URLs file is required")
	}
	if c.Mapping.RecordsFile == "" {
		errs = append(errs, "mapping records file is required")
	}
	if c.Mapping.URLsFile != "" && c.Mapping.URLsFile == c.Mapping.RecordsFile {
		errs = append(errs, "mapping URLs file and records file must differ")
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, "fetch timeout must be positive")
	}

	if c.CircuitBreaker.FailureThreshold <= 0 {
		errs = append(errs, "circuit breaker failure threshold must be positive")
	}
	if c.CircuitBreaker.Timeout <= 0 {
		errs = append(errs, "circuit breaker timeout must be positive")
	}
	if c.CircuitBreaker.HalfOpenRequests <= 0 {
		errs = append(errs, "circuit breaker half-open requests must be positive")
	}

	if err := c.Scheduler.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// envParser is a helper for parsing environment variables with validation
type envParser struct {
	errors []string
}

// parseString overrides target when the environment variable is set
func (p *envParser) parseString(envName string, target *string) {
	if val := os.Getenv(envName); val != "" {
		*target = val
	}
}

// parseDuration parses a duration environment variable, ensuring it's positive
func (p *envParser) parseDuration(envName string, target *time.Duration) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: invalid duration format (use '30s', '1m', etc.)", envName))
		return
	}

	if duration <= 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must be positive", envName))
		return
	}

	*target = duration
}
