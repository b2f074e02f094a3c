package http

import (
	"net/http"
	"strings"

	"cartera/internal/core"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathKind reads the {kind} path segment.
func pathKind(r *http.Request) (core.Kind, error) {
	return core.ParseKind(r.PathValue("kind"))
}

// pathID reads the {id} path segment.
func pathID(r *http.Request) string {
	return sanitizeInput(r.PathValue("id"))
}
