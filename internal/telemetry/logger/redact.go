// Package logger provides structured logging for PlotVault.
package logger

import (
	"log/slog"
	"strings"
)

// Sensitive value prefixes that should be partially masked.
// pvth_ marks token hashes; signed tokens themselves are JWTs and are
// caught by the key patterns below plus the JWT shape check.
var sensitiveValuePrefixes = []string{
	"pvth_", // token hash
}

// Safe value prefixes that bypass key-based redaction. Token IDs are
// audit identifiers, logged so operators can revoke by ID; the keys
// carrying them ("token_id") would otherwise match the patterns below.
var safeValuePrefixes = []string{
	"pvtk-", // token ID
}

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
	"bearer",
	"fingerprint",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive is installed as the handlers' ReplaceAttr hook. It
// masks string attributes that carry secrets and recurses into groups.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if masked, ok := maskString(a.Key, a.Value.String()); ok {
			return slog.String(a.Key, masked)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// maskString reports whether a string attribute must be replaced, and
// with what. Value shape wins over key name: a token hash is partially
// masked and a token ID passes through even under a key like
// "token_hash" or "token_id" that matches the sensitive patterns.
func maskString(key, val string) (string, bool) {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(val, prefix) {
			return maskValue(val, prefix), true
		}
	}
	for _, prefix := range safeValuePrefixes {
		if strings.HasPrefix(val, prefix) {
			return "", false
		}
	}
	// Signed tokens (three dot-separated base64url segments) are
	// fully redacted regardless of key name.
	if looksLikeJWT(val) {
		return redactedValue, true
	}
	if val != "" && IsSensitiveKey(key) {
		return redactedValue, true
	}
	return "", false
}

// maskValue keeps the prefix and the value's edges so log lines stay
// correlatable: prefix + first 3 chars + "..." + last 3 chars. Values
// too short to mask safely collapse to prefix + "***".
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// looksLikeJWT reports whether a value has the shape of a signed token:
// three non-empty segments separated by dots, starting with the base64
// encoding of a JSON object ("eyJ").
func looksLikeJWT(value string) bool {
	if !strings.HasPrefix(value, "eyJ") {
		return false
	}
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return false
	}
	return parts[0] != "" && parts[1] != "" && parts[2] != ""
}

// RedactString redacts a value ahead of logging, for call sites that
// build messages outside the slog attribute path.
func RedactString(value string) string {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return maskValue(value, prefix)
		}
	}
	if looksLikeJWT(value) {
		return redactedValue
	}
	return value
}

// IsSensitiveKey reports whether a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether a value looks like a secret by shape.
func IsSensitiveValue(value string) bool {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return looksLikeJWT(value)
}
