package http

import (
	"context"
	"net/http"
	"time"

	"cartera/internal/cache"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports 503 until the persistence backend answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"storage": "not_configured"}
	status, code := "ready", http.StatusOK
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "check", "storage", "error", err)
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status": status,
		"checks": checks,
		"cache": map[string]cache.Stats{
			"totals":    s.totalsCache.Stats(),
			"monthly":   s.monthlyCache.Stats(),
			"breakdown": s.breakdownCache.Stats(),
			"lists":     s.listCache.Stats(),
			"salary":    s.salaryCache.Stats(),
		},
		"requests":  s.tracer.GetMetrics(),
		"security":  s.detector.GetMetrics(),
		"ratelimit": s.limiter.GetMetrics(),
	}).Write(w)
}
