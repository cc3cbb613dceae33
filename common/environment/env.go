// Package environment overlays configuration with values from environment
// variables.
//
// The Override* helpers only touch the destination when the variable is set
// to a non-empty, parseable value, so a default or a value loaded from the
// YAML file survives unless the operator explicitly overrides it. Malformed
// values are reported through the returned error rather than silently
// ignored.
package environment

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// String returns the value of the named environment variable and a boolean
// indicating whether it was set (even if set to the empty string).
func String(name string) (string, bool) {
	return os.LookupEnv(name)
}

// StringOr returns the value of the named environment variable, or
// defaultValue if the variable is unset or empty.
func StringOr(name, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return defaultValue
}

// OverrideString sets *dst to the variable's value when it is non-empty.
func OverrideString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

// OverrideBool parses the variable with strconv.ParseBool.
func OverrideBool(dst *bool, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", name, v)
	}
	*dst = b
	return nil
}

// OverrideInt parses the variable as a decimal integer.
func OverrideInt(dst *int, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", name, v)
	}
	*dst = n
	return nil
}

// OverrideDuration parses the variable as a time.Duration ("30s", "24h").
func OverrideDuration(dst *time.Duration, name string) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", name, v)
	}
	*dst = d
	return nil
}

// OverrideStringSlice parses the variable as a comma-separated list, trimming
// whitespace and dropping empty elements. A variable that yields no elements
// leaves *dst untouched.
func OverrideStringSlice(dst *[]string, name string) {
	v := os.Getenv(name)
	if strings.TrimSpace(v) == "" {
		return
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	if len(result) > 0 {
		*dst = result
	}
}
