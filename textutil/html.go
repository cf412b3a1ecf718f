package textutil

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML replaces the five HTML-significant characters with entities.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// SanitizeHTML escapes s when XSS protection is on and returns it untouched
// otherwise.
func SanitizeHTML(s string, xssProtection bool) string {
	if !xssProtection {
		return s
	}
	return EscapeHTML(s)
}

var lineFormatter = strings.NewReplacer(
	"\n", "<br>",
	"\t", "&nbsp;&nbsp;&nbsp;&nbsp;",
)

// FormatText renders newlines and tabs for HTML display. Escape first.
func FormatText(s string) string {
	return lineFormatter.Replace(s)
}

// Truncate shortens s to at most maxLength characters, ending it with
// suffix when anything was cut.
func Truncate(s string, maxLength int, suffix string) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	suffixRunes := []rune(suffix)
	keep := maxLength - len(suffixRunes)
	if keep <= 0 {
		return string(suffixRunes[:maxLength])
	}
	return string(runes[:keep]) + suffix
}
