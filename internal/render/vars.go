package render

import (
	"strings"
	"time"
)

// ExpandVars performs simple placeholder substitutions for template strings
// used in config-provided text fields (e.g., a channel's digest title).
//
// Supported variables:
// - {.CurrentDate} => formatted as YYYY-MM-DD (UTC)
func ExpandVars(s string, now time.Time) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return strings.ReplaceAll(s, "{.CurrentDate}", now.UTC().Format("2006-01-02"))
}
