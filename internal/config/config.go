// Package config holds the immutable settings for an ocd-events run.
//
// Defaults reproduce the fixed Chicago City Clerk query. A YAML file can
// override any field; the CLI applies explicitly set flags on top of that.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL      = "https://ocd.datamade.us/"
	DefaultJurisdiction = "ocd-jurisdiction/country:us/state:il/place:chicago/government"
	DefaultSort         = "start_date"
	DefaultUserAgent    = "ocd-events/1.0 (github.com/pfrederiksen/ocd-events)"
	DefaultTimeout      = 30 * time.Second
	DefaultLogLevel     = "info"
)

// Compat toggles legacy output quirks
type Compat struct {
	// SwapSources swaps the first and third source after the ocd-api entry is appended
	SwapSources bool `yaml:"swap_sources"`
	// DoubleFetch requests the detail resource separately for location and sources
	DoubleFetch bool `yaml:"double_fetch"`
}

type Metrics struct {
	Textfile string `yaml:"textfile"` // node_exporter textfile path; empty disables
}

type Log struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Config is built once at startup and passed by value
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	Jurisdiction string        `yaml:"jurisdiction"`
	Sort         string        `yaml:"sort"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	Compat       Compat        `yaml:"compat"`
	Metrics      Metrics       `yaml:"metrics"`
	Log          Log           `yaml:"log"`
}

// Default returns the configuration of the fixed upstream query
func Default() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Jurisdiction: DefaultJurisdiction,
		Sort:         DefaultSort,
		UserAgent:    DefaultUserAgent,
		Timeout:      DefaultTimeout,
		Compat: Compat{
			SwapSources: true,
			DoubleFetch: false,
		},
		Log: Log{Level: DefaultLogLevel},
	}
}

// Load reads a YAML file and overlays it onto Default()
func Load(path string) (Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse yaml: %w", err)
	}

	return c.normalize(), nil
}

// normalize fills blanks left by a partial file
func (c Config) normalize() Config {
	d := Default()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.Jurisdiction == "" {
		c.Jurisdiction = d.Jurisdiction
	}
	if c.Sort == "" {
		c.Sort = d.Sort
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	return c
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q has no host", c.BaseURL)
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		return fmt.Errorf("base_url %q must end with /", c.BaseURL)
	}
	if c.Jurisdiction == "" {
		return fmt.Errorf("jurisdiction is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// ListingURL returns the event listing endpoint
func (c Config) ListingURL() string {
	return c.BaseURL + "events/"
}

// DetailURL returns the detail resource for an event identifier
func (c Config) DetailURL(id string) string {
	return c.BaseURL + id
}
