// Package redact scrubs secret material from text and flags sensitive file
// paths so they never reach a handoff bundle.
package redact

import (
	"path/filepath"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// PathPlaceholder replaces sensitive file paths wherever they would be
// displayed. Secret values use the uppercase placeholder instead.
const PathPlaceholder = "[redacted]"

// Each rule is applied once, left to right, over the whole input.
var rules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	// KEY=..., API_TOKEN=..., DB_PASSWORD=... — keep the key, drop the value.
	{regexp.MustCompile(`(?i)\b([A-Za-z0-9_.-]*(?:KEY|TOKEN|SECRET|PASSWORD))\s*=\s*[^\s'"]+`), "$1=" + placeholder},
	{regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/=-]+`), "Bearer " + placeholder},
	// AWS access key IDs are uppercase by definition — case-sensitive.
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), placeholder},
	{regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`), placeholder},
}

// Redact replaces known secret patterns in text with a placeholder.
// It never fails; input without secrets comes back unchanged.
func Redact(text string) string {
	if text == "" {
		return ""
	}
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	return text
}

// Normalize trims surrounding whitespace and redacts in one step. All text
// entering a branch index goes through here.
func Normalize(text string) string {
	return Redact(strings.TrimSpace(text))
}

// IsSensitivePath reports whether a file path must be excluded from file
// listings and shown as a placeholder when referenced.
func IsSensitivePath(path string) bool {
	if path == "" {
		return false
	}
	lower := strings.ToLower(path)
	if strings.Contains(lower, "credentials") {
		return true
	}
	base := filepath.Base(lower)
	if base == ".env" || strings.HasPrefix(base, ".env.") {
		return true
	}
	switch base {
	case "auth.json", "id_rsa", "id_ed25519":
		return true
	}
	switch filepath.Ext(base) {
	case ".pem", ".key", ".p12":
		return true
	}
	return false
}
