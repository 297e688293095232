// Package config loads runtime configuration for the gridctl client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c, -config or --config. Files with
//     a .yaml/.yml extension are YAML, everything else is JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Durations use timex.Duration, so they can be strings like "5s" or integer
// nanoseconds:
//
//	{
//	  "base_url": "http://localhost:8081/api",
//	  "request_timeout": "10s",
//	  "log_level": "info",
//	  "log_format": "zap",
//	  "default_page_size": 50,
//	  "source": "web",
//	  "time_zone": "Europe/Riga"
//	}
//
// The package does not read environment variables.
package config
