package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/eumgrid/internal/flagx"
	"github.com/dmitrijs2005/eumgrid/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for decoding config files. Pointer
// and zero-valued fields that are absent from the file leave the current
// Config value alone.
type FileConfig struct {
	BaseURL         string          `json:"base_url" yaml:"base_url"`
	RequestTimeout  *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LogLevel        string          `json:"log_level" yaml:"log_level"`
	LogFormat       string          `json:"log_format" yaml:"log_format"`
	DefaultPageSize int             `json:"default_page_size" yaml:"default_page_size"`
	Source          string          `json:"source" yaml:"source"`
	TimeZone        string          `json:"time_zone" yaml:"time_zone"`
}

// parseFile overlays cfg with values from the file named by -c/-config.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc FileConfig) apply(cfg *Config) {
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.DefaultPageSize != 0 {
		cfg.DefaultPageSize = fc.DefaultPageSize
	}
	if fc.Source != "" {
		cfg.Source = fc.Source
	}
	if fc.TimeZone != "" {
		cfg.TimeZone = fc.TimeZone
	}
}
