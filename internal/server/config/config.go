// Package config handles configuration for the development backend,
// including defaults, a JSON or YAML file overlay, and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds runtime settings for the devserver.
//
// Fields:
//   - Addr: listen address of the HTTP server.
//   - BasePath: prefix every API route is mounted under, e.g. "/api".
//   - SecretKey: HMAC secret for signing access tokens (HS256). Do not use the default outside development.
//   - AccessTokenTTL / RefreshTokenTTL: token lifetimes.
//   - UsersFile: optional JSON or YAML list of accounts; empty seeds admin/admin.
//   - LogLevel, LogFormat: passed to logging.New.
//   - CookieSecure: mark the refresh cookie Secure (needs HTTPS).
type Config struct {
	Addr            string
	BasePath        string
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	UsersFile       string
	LogLevel        string
	LogFormat       string
	CookieSecure    bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.Addr = ":8081"
	c.BasePath = "/api"
	c.SecretKey = "secretKey"
	c.AccessTokenTTL = 1 * time.Minute
	c.RefreshTokenTTL = 24 * time.Hour
	c.LogLevel = "info"
	c.LogFormat = "json"
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base path %q must start with /", c.BasePath)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key must not be empty")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return fmt.Errorf("refresh token lifetime %s is shorter than access token lifetime %s",
			c.RefreshTokenTTL, c.AccessTokenTTL)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
// args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
