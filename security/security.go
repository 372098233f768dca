// Package security provides credential masking, log sanitization and input
// validation for the Mender MCP server. Every string that can reach a log
// sink or a protocol client passes through here first.
package security

import (
	"regexp"
	"strings"
)

// sanitizeRule is a single pattern/replacement pair. Rules run in order and
// the full chain is idempotent: sanitizing already-sanitized text is a no-op.
type sanitizeRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var sanitizeRules = []sanitizeRule{
	// JWT tokens (eyJ...)
	{regexp.MustCompile(`\beyJ[a-zA-Z0-9._-]+`), "[JWT_TOKEN]"},
	// Long opaque alphanumeric strings, heuristically API keys
	{regexp.MustCompile(`\b[a-zA-Z0-9]{32,}\b`), "[API_KEY]"},
	// key=value pairs with key-like names
	{regexp.MustCompile(`(?i)(key|api[-_]?key)\s*[:=]\s*[a-zA-Z0-9]{16,}`), "${1}=[API_KEY]"},
	// Bearer tokens in Authorization headers
	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`), "Bearer [TOKEN]"},
	// Basic auth
	{regexp.MustCompile(`Basic\s+[a-zA-Z0-9+/=]+`), "Basic [CREDENTIALS]"},
	// URLs with embedded credentials
	{regexp.MustCompile(`://[^:/@\s]+:[^@\s]+@`), "://[USER]:[PASS]@"},
	// Potential passwords or secrets
	{regexp.MustCompile(`(?i)(password|secret|key|token)\s*[:=]\s*[^\s'"]+`), "${1}=[REDACTED]"},
}

// MaskToken produces a display-safe representation of a secret. Short
// secrets (<16 chars) are fully masked at equal length, the empty string
// maps to an explicit sentinel, and longer secrets keep their first and
// last 8 characters so log lines remain correlatable to one credential.
func MaskToken(token string) string {
	if token == "" {
		return "*[EMPTY]*"
	}
	if len(token) < 16 {
		return strings.Repeat("*", len(token))
	}
	return token[:8] + strings.Repeat("*", len(token)-16) + token[len(token)-8:]
}

// SanitizeMessage redacts token- and credential-shaped substrings from
// free text. Safe to call on already-sanitized input.
func SanitizeMessage(message string) string {
	for _, rule := range sanitizeRules {
		message = rule.pattern.ReplaceAllString(message, rule.replacement)
	}
	return message
}
