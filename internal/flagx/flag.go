// Package flagx helps several components share os.Args: each one filters out
// the flags it owns before parsing them.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs keeps only the flags named in allowedFlags, together with their
// values, preserving order. Both "-c conf.json" and "--config=conf.json" are
// recognised. A separate value is taken only when the next argument does not
// start with a dash.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, ok := strings.Cut(arg, "="); ok {
			if allowed[name] {
				out = append(out, arg)
			}
			continue
		}

		if !allowed[arg] {
			continue
		}
		out = append(out, arg)
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			out = append(out, args[next])
			i = next
		}
	}
	return out
}

// lookupPathFlag parses only the given flag names out of os.Args and returns
// the last value seen. Other arguments are ignored so each component can
// parse its own flags without interfering with flags defined elsewhere.
func lookupPathFlag(long, short, usage string) string {
	var value string

	args := FilterArgs(os.Args[1:], []string{"-" + short, "-" + long})

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&value, long, "", usage)
	fs.StringVar(&value, short, "", usage+" (short)")
	_ = fs.Parse(args)

	return value
}

// JsonConfigFlags returns the config file path provided via the -c or
// -config flags, or an empty string.
func JsonConfigFlags() string {
	return lookupPathFlag("config", "c", "Path to config file")
}

// EnvFileFlags returns the dotenv file path provided via the -env or -E
// flags, or an empty string.
func EnvFileFlags() string {
	return lookupPathFlag("env", "E", "Path to .env file")
}
