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

// FileConfig is the DTO for config files. Duration fields accept "1m" style
// strings as well as integer nanoseconds.
type FileConfig struct {
	Addr            string          `json:"addr" yaml:"addr"`
	BasePath        *string         `json:"base_path" yaml:"base_path"`
	SecretKey       string          `json:"secret_key" yaml:"secret_key"`
	AccessTokenTTL  *timex.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTL *timex.Duration `json:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	UsersFile       string          `json:"users_file" yaml:"users_file"`
	LogLevel        string          `json:"log_level" yaml:"log_level"`
	LogFormat       string          `json:"log_format" yaml:"log_format"`
	CookieSecure    *bool           `json:"cookie_secure" yaml:"cookie_secure"`
}

// parseFile overlays cfg with the file named by -c/-config. A relative
// users_file is resolved against the config file's directory.
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

	if fc.UsersFile != "" && !filepath.IsAbs(fc.UsersFile) {
		fc.UsersFile = filepath.Join(filepath.Dir(path), fc.UsersFile)
	}
	fc.apply(cfg)
	return nil
}

func (fc FileConfig) apply(cfg *Config) {
	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.BasePath != nil {
		cfg.BasePath = *fc.BasePath
	}
	if fc.SecretKey != "" {
		cfg.SecretKey = fc.SecretKey
	}
	if fc.AccessTokenTTL != nil {
		cfg.AccessTokenTTL = fc.AccessTokenTTL.Duration
	}
	if fc.RefreshTokenTTL != nil {
		cfg.RefreshTokenTTL = fc.RefreshTokenTTL.Duration
	}
	if fc.UsersFile != "" {
		cfg.UsersFile = fc.UsersFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.CookieSecure != nil {
		cfg.CookieSecure = *fc.CookieSecure
	}
}
