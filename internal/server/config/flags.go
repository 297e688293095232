package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/eumgrid/internal/flagx"
)

// Flags lists every setting flag parseFlags consumes.
var Flags = []string{
	"-a", "-addr", "--addr",
	"-base-path", "--base-path",
	"-s", "-secret", "--secret",
	"-access-ttl", "--access-ttl",
	"-refresh-ttl", "--refresh-ttl",
	"-users", "--users",
	"-log-level", "--log-level",
	"-log-format", "--log-format",
	"-secure-cookie", "--secure-cookie",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a, -addr string          listen address, e.g. ":8081"
//	-base-path string         route prefix, e.g. "/api"
//	-s, -secret string        JWT HMAC secret key
//	-access-ttl duration      access token lifetime
//	-refresh-ttl duration     refresh token lifetime
//	-users string             users file
//	-log-level string         debug, info, warn or error
//	-log-format string        text, json or zap
//	-secure-cookie            mark the refresh cookie Secure
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, Flags)

	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "listen address")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.BasePath, "base-path", cfg.BasePath, "route prefix")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.StringVar(&cfg.SecretKey, "secret", cfg.SecretKey, "secret key")
	fs.DurationVar(&cfg.AccessTokenTTL, "access-ttl", cfg.AccessTokenTTL, "access token lifetime")
	fs.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", cfg.RefreshTokenTTL, "refresh token lifetime")
	fs.StringVar(&cfg.UsersFile, "users", cfg.UsersFile, "users file (JSON or YAML)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json, zap)")
	fs.BoolVar(&cfg.CookieSecure, "secure-cookie", cfg.CookieSecure, "secure refresh cookie")

	return fs.Parse(args)
}
