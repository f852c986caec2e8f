// Package flagx helps several flag sets share one argument list.
package flagx

import (
	"strings"

	"github.com/spf13/pflag"
)

// FilterArgs keeps only the flags named in allowedFlags, together with their
// values. Both "-f value" and "--flag=value" forms are recognised. A token
// that starts with "-" is never consumed as a value.
//
// Several independent flag sets (config file lookup, server flags) read the
// same os.Args; filtering lets each parse strictly without tripping over
// flags that belong to the others.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag extracts the config file path given via -c or --config.
//
// Only these flags are parsed; other arguments are ignored so that the
// caller can parse its own flag set afterwards without collisions.
//
// If neither flag is present, an empty string is returned.
func ConfigFileFlag(args []string) string {
	var config string

	filtered := FilterArgs(args, []string{"-c", "--config"})

	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.StringVarP(&config, "config", "c", "", "Path to config file (.json, .jsonc, .yaml)")
	_ = fs.Parse(filtered)

	return config
}

// Names lists every flag of fs in the forms FilterArgs expects: "--name"
// and, when a shorthand exists, "-x".
func Names(fs *pflag.FlagSet) []string {
	var names []string
	fs.VisitAll(func(f *pflag.Flag) {
		names = append(names, "--"+f.Name)
		if f.Shorthand != "" {
			names = append(names, "-"+f.Shorthand)
		}
	})
	return names
}
