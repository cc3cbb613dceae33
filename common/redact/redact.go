// Package redact strips sensitive values (Matrix access token, weather and AI
// API keys) from strings and structured data before they are logged.
//
// Redaction is best-effort and relies on callers to pass the right set of
// sensitive terms.
package redact

import (
	"strings"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid spurious
// redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Value renders a secret for logging: "" stays "" so operators can see that
// the value is unset, anything else becomes [REDACTED].
func Value(secret string) string {
	if secret == "" {
		return ""
	}
	return placeholder
}

// Map returns a shallow copy of m with string values replaced by [REDACTED]
// for every key whose name suggests it holds a secret.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			if str, ok := v.(string); ok && str != "" {
				out[k] = placeholder
				continue
			}
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "token", "secret", "key", "credential", "auth", "dsn"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
