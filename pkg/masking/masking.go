// Package masking redacts credentials from log output. Keys are matched by
// name fragment; free text is scanned for inline key=value leaks.
package masking

import (
	"regexp"
	"strings"
)

// MaskedValue replaces any redacted secret.
const MaskedValue = "***MASKED***"

var sensitiveNameFragments = []string{
	"api_key",
	"apikey",
	"token",
	"password",
	"secret",
}

var inlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|password|secret)\s*[=:]\s*\S+`),
	regexp.MustCompile(`\bsk-[A-Za-z0-9]{16,}\b`),
}

// SensitiveKey reports whether a field name looks like it holds a credential.
func SensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range sensitiveNameFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// RedactArgs returns a copy of args with sensitive values masked.
// The input map is not mutated.
func RedactArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if SensitiveKey(k) {
			out[k] = MaskedValue
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = RedactText(s)
			continue
		}
		out[k] = v
	}
	return out
}

// RedactText masks inline credential patterns in free text.
func RedactText(text string) string {
	for _, re := range inlinePatterns {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			if i := strings.IndexAny(m, "=:"); i >= 0 {
				return m[:i+1] + " " + MaskedValue
			}
			return MaskedValue
		})
	}
	return text
}
