// Package flagx splits a single argument vector between several parsers.
//
// The gridctl binary reads its connection settings with the standard flag
// package (see internal/client/config) and hands everything else to cobra.
// FilterArgs extracts the arguments one parser owns, StripArgs removes them
// so the other parser never sees them.
package flagx

import (
	"flag"
	"strings"
)

// ConfigFileFlags are the flag spellings that select a config file.
var ConfigFileFlags = []string{"-c", "-config", "--config"}

// FilterArgs returns only the allowed flags (and their values) from args.
//
// Supported forms:
//
//	-c conf.json       flag and value as separate arguments
//	--config=conf.json flag and value joined with '='
//
// A following argument is treated as the flag's value unless it starts
// with '-'. The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	kept, _ := partition(args, allowedFlags)
	return kept
}

// StripArgs is the complement of FilterArgs: it returns args with the
// listed flags and their values removed, preserving the order of the rest.
func StripArgs(args []string, flags []string) []string {
	_, rest := partition(args, flags)
	return rest
}

func partition(args []string, names []string) (matched []string, rest []string) {
	set := make(map[string]struct{}, len(names))
	for _, f := range names {
		set[f] = struct{}{}
	}

	matched = make([]string, 0, len(args))
	rest = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := set[name]; ok {
				matched = append(matched, arg)
			} else {
				rest = append(rest, arg)
			}
			continue
		}

		if _, ok := set[arg]; !ok {
			rest = append(rest, arg)
			continue
		}

		matched = append(matched, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			matched = append(matched, args[i+1])
			i++
		}
	}

	return matched, rest
}

// ConfigFile returns the config file path given with -c, -config or
// --config, or an empty string. When repeated, the last one wins.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFileFlags))

	return path
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
