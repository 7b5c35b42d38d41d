// Package config handles YAML config file loading for the dashboard.
package config

import (
	"os"
	"regexp"
)

// envRef matches ${VAR} and ${VAR:-default}. Bare $VAR is left alone so
// debugger expressions pasted into cmds files survive config loading.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references in input with
// environment variable values. The default applies when VAR is unset or
// empty; a reference with no default and no value expands to empty string,
// surfacing at downstream validation rather than here.
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name, fallback := m[1], m[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return fallback
	})
}
