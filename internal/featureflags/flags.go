package featureflags

import (
	"os"
	"strings"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	return on(os.Getenv("FLAG_" + strings.ToUpper(name)))
}

// EnabledDefault is like Enabled but falls back to def when the variable
// is unset. The demo login bypass defaults on, so it needs an explicit
// off switch rather than an opt-in.
func EnabledDefault(name string, def bool) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	if v == "" {
		return def
	}
	return on(v)
}

func on(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
