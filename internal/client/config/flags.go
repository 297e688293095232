package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/eumgrid/internal/flagx"
)

var settingFlags = []string{
	"-a", "-addr", "--addr",
	"-t", "-timeout", "--timeout",
	"-log-level", "--log-level",
	"-log-format", "--log-format",
	"-page-size", "--page-size",
	"-tz", "--tz",
}

// Flags lists every spelling parseFlags and parseFile consume. The CLI strips
// them before handing the remaining arguments to its command parser.
var Flags = append(append([]string{}, settingFlags...), flagx.ConfigFileFlags...)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a, -addr string        API base URL
//	-t, -timeout duration   per-request timeout, e.g. 5s
//	-log-level string       debug, info, warn or error
//	-log-format string      text, json or zap
//	-page-size int          default page size
//	-tz string              time zone for YYYYMMDD dates
//
// Only the flags above are parsed; args is filtered with flagx.FilterArgs
// so command arguments never reach this flag set.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, settingFlags)

	fs := flag.NewFlagSet("gridctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "API base URL")
	fs.StringVar(&cfg.BaseURL, "addr", cfg.BaseURL, "API base URL")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "per-request timeout")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json, zap)")
	fs.IntVar(&cfg.DefaultPageSize, "page-size", cfg.DefaultPageSize, "default page size")
	fs.StringVar(&cfg.TimeZone, "tz", cfg.TimeZone, "time zone for YYYYMMDD dates")

	return fs.Parse(args)
}
