package textutil

import "strings"

var newlines = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// CleanLabel normalizes a free-text condition label: embedded line breaks
// become single spaces and surrounding whitespace is trimmed. Idempotent, so
// it is safe to apply both at import time and as a repair pass over stored
// rows.
func CleanLabel(s string) string {
	return strings.TrimSpace(newlines.Replace(s))
}
