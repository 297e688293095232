package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the gridctl client.
//
// Fields:
//   - BaseURL: API root every endpoint path is appended to.
//   - RequestTimeout: upper bound for a single HTTP exchange.
//   - LogLevel, LogFormat: passed to logging.New.
//   - DefaultPageSize: take applied when paging is enabled without one.
//   - Source: metadata.source sent with grid requests.
//   - TimeZone: IANA name used to build dates from YYYYMMDD values.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	LogLevel        string
	LogFormat       string
	DefaultPageSize int
	Source          string
	TimeZone        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://localhost:8081/api"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.DefaultPageSize = 50
	c.Source = "web"
	c.TimeZone = "Local"
}

// Location resolves TimeZone. Unknown names are reported at load time, so
// this falls back to time.Local only for a hand-built Config.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("default page size must be positive, got %d", c.DefaultPageSize)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if -c/-config is given) and command-line flags. Later
// sources take precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
