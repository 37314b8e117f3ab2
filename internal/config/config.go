// Package config loads couchctl settings from an HCL file.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"

	couch "github.com/patrickjuchli/minicouch"
)

// Config is the configuration for couchctl. All fields are optional.
//
// Example:
//
//	url           = "http://localhost:5984/"
//	timeout       = "30s"
//	log_level     = "debug"
//	uuid_prefetch = 100
type Config struct {
	// URL of the CouchDB server.
	URL string `hcl:"url,optional"`

	// Timeout is the HTTP timeout, as a duration string.
	Timeout string `hcl:"timeout,optional"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `hcl:"log_level,optional"`

	// UUIDPrefetch is the number of extra identifiers fetched per refill.
	UUIDPrefetch *int `hcl:"uuid_prefetch,optional"`
}

// Default returns a configuration pointing at a local server.
func Default() *Config {
	return &Config{
		URL:      couch.DefaultURL,
		LogLevel: "warn",
	}
}

// Load decodes the HCL file at path on top of Default and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.URL != "" {
		if _, err := url.Parse(c.URL); err != nil {
			result = multierror.Append(result, fmt.Errorf("url: %w", err))
		}
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("timeout: %w", err))
		} else if d < 0 {
			result = multierror.Append(result, fmt.Errorf("timeout: must not be negative"))
		}
	}
	if c.LogLevel != "" && hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}
	if c.UUIDPrefetch != nil && *c.UUIDPrefetch < 0 {
		result = multierror.Append(result, fmt.Errorf("uuid_prefetch: must not be negative"))
	}

	return result.ErrorOrNil()
}

// Level returns the configured log level, warn if unset.
func (c *Config) Level() hclog.Level {
	if c.LogLevel == "" {
		return hclog.Warn
	}
	return hclog.LevelFromString(c.LogLevel)
}

// ClientConfig turns the configuration into settings for couch.NewWithConfig.
// It expects a validated configuration.
func (c *Config) ClientConfig(logger hclog.Logger) couch.Config {
	cc := couch.Config{
		URL:          c.URL,
		Logger:       logger,
		UUIDPrefetch: c.UUIDPrefetch,
	}
	if c.Timeout != "" {
		cc.Timeout, _ = time.ParseDuration(c.Timeout)
	}
	return cc
}
