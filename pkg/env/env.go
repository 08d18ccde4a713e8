// Package env reads settings needed before config.Load runs, such as the log format.
package env

import (
	"os"
	"strings"
)

const prefix = "NELINE_"

// Get returns the NELINE_-prefixed variable, then the bare name, then fallback.
func Get(key, fallback string) string {
	for _, name := range []string{prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
