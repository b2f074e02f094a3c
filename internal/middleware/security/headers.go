// Package security sets response hardening headers and flags requests that
// look like probes.
package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HeadersConfig lists the hardening headers sent with every response. Empty
// values are not sent.
type HeadersConfig struct {
	CSP string

	// HSTS is sent over TLS only, and only when HSTSMaxAge is positive.
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string

	// CacheControl applies to every response; ledger figures are personal.
	CacheControl string
}

// DefaultHeadersConfig returns defaults for a JSON API that serves no
// documents, scripts or frames.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
	}
}

type header struct{ name, value string }

type HeadersMiddleware struct {
	always []header
	hsts   string
}

// NewHeadersMiddleware renders config once; the middleware only copies the
// prepared values.
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{}
	for _, hd := range []header{
		{"X-Content-Type-Options", config.XContentTypeOptions},
		{"X-Frame-Options", config.XFrameOptions},
		{"Content-Security-Policy", config.CSP},
		{"Referrer-Policy", config.ReferrerPolicy},
		{"Permissions-Policy", config.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", config.CrossOriginOpener},
		{"Cross-Origin-Resource-Policy", config.CrossOriginResource},
		{"Cache-Control", config.CacheControl},
	} {
		if hd.value != "" {
			h.always = append(h.always, hd)
		}
	}

	if config.HSTSMaxAge > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "max-age=%d", int64(config.HSTSMaxAge/time.Second))
		if config.HSTSIncludeSubdomains {
			b.WriteString("; includeSubDomains")
		}
		if config.HSTSPreload {
			b.WriteString("; preload")
		}
		h.hsts = b.String()
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, hd := range h.always {
			headers.Set(hd.name, hd.value)
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
