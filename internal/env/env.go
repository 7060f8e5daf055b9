package env

import (
	"os"
	"strings"
)

// Get looks up an environment variable and reports whether it is set to a
// non-empty value after trimming whitespace.
func Get(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// GetDefault returns the trimmed value of key, or fallback when unset/empty.
func GetDefault(key, fallback string) string {
	if v, ok := Get(key); ok {
		return v
	}
	return fallback
}
