package intake

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>?`)
	numberPrefix  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	integerPrefix = regexp.MustCompile(`^[+-]?\d+`)
)

// Sanitize trims, strips markup tags and escapes & < > " ' in a submitted value.
func Sanitize(v string) string {
	v = strings.TrimSpace(v)
	v = tagPattern.ReplaceAllString(v, "")
	return html.EscapeString(v)
}

// SanitizeForm returns a sanitized copy of the form. The input is not modified.
func SanitizeForm(form map[string]string) map[string]string {
	out := make(map[string]string, len(form))
	for k, v := range form {
		out[k] = Sanitize(v)
	}
	return out
}

// parseFloat reads the leading number of s and returns 0 when there is none,
// so "12.5€" is 12.5 and "abc" is 0.
func parseFloat(s string) float64 {
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseInt is parseFloat for whole numbers; "12.9" is 12.
func parseInt(s string) int {
	m := integerPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// parseFlag treats any non-zero leading integer as true.
func parseFlag(s string) bool {
	return parseInt(s) != 0
}
