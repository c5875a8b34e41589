package myskoda

import (
	"errors"
	"strings"
)

// Failure classes returned by RestAPI. Match them with errors.Is.
var (
	ErrNetwork = errors.New("myskoda: network error")
	ErrAuth    = errors.New("myskoda: authorization error")
	ErrParse   = errors.New("myskoda: invalid json response")
	ErrSchema  = errors.New("myskoda: unexpected response schema")
)

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
