// Package flagx lets several configuration layers share one argv: each layer
// picks out only the flags it owns before handing them to a flag.FlagSet.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// flagName strips one or two leading dashes, so "-c" and "--c" compare equal
// the same way the flag package treats them.
func flagName(arg string) string {
	name := strings.TrimPrefix(arg, "-")
	return strings.TrimPrefix(name, "-")
}

// FilterArgs returns the subset of args naming one of allowedFlags, together
// with their values.
//
// Supported forms:
//
//	-c conf.json
//	--config=conf.json
//
// Names are compared without their leading dashes. A separate value is taken
// only when the next token does not itself start with "-".
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[flagName(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, ok := strings.Cut(arg, "="); ok {
			if _, ok := allowed[flagName(name)]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[flagName(arg)]; !ok {
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

// ConfigFile returns the path given with -c or -config, or "" when absent.
// Parse errors are ignored; the real flag layer reports them.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
