package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cartera/internal/cache"
	"cartera/internal/core"
	"cartera/internal/ledger"
	applog "cartera/internal/log"
	"cartera/internal/middleware/ratelimit"
	"cartera/internal/middleware/security"
	"cartera/internal/middleware/trace"
	"cartera/internal/salary"
	"cartera/internal/services"
)

// Pinger is the readiness probe of the persistence backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	Logger             *applog.Logger
	Pinger             Pinger
	RateLimitPerMinute int
	CacheTTL           time.Duration
}

type Server struct {
	http.Server
	ledger *services.LedgerService
	salary *services.SalaryService
	pinger Pinger
	logger *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// Aggregates keyed by store revision; a mutation makes old keys
	// unreachable and the TTL reclaims them.
	caches         *cache.Manager
	totalsCache    *cache.LRUCache[core.Totals]
	monthlyCache   *cache.LRUCache[[]core.MonthComparison]
	breakdownCache *cache.LRUCache[core.MonthBreakdown]
	listCache      *cache.LRUCache[[]ledger.Record]
	salaryCache    *cache.LRUCache[salary.Breakdown]

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, ls *services.LedgerService, ss *services.SalaryService, opts Options) *Server {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := applog.Wrap(nil, applog.ComponentHTTP)
	if opts.Logger != nil {
		logger = opts.Logger.WithComponent(applog.ComponentHTTP)
	}

	rl := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rl.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		ledger:   ls,
		salary:   ss,
		pinger:   opts.Pinger,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(rl),
		detector: security.NewDetector(),
		caches:   cache.NewManager(),

		totalsCache:    cache.NewLRUCache[core.Totals](16, ttl),
		monthlyCache:   cache.NewLRUCache[[]core.MonthComparison](16, ttl),
		breakdownCache: cache.NewLRUCache[core.MonthBreakdown](64, ttl),
		listCache:      cache.NewLRUCache[[]ledger.Record](64, ttl),
		salaryCache:    cache.NewLRUCache[salary.Breakdown](8, ttl),

		started: time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.caches.Register(s.totalsCache)
	s.caches.Register(s.monthlyCache)
	s.caches.Register(s.breakdownCache)
	s.caches.Register(s.listCache)
	s.caches.Register(s.salaryCache)
	s.caches.StartCleanup(ttl)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/ledger/totals", s.handleTotals)
	mux.HandleFunc("GET /api/ledger/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/ledger/breakdown", s.handleBreakdown)
	mux.HandleFunc("POST /api/ledger/pending/{id}/paid", s.handleMarkPaid)
	mux.HandleFunc("GET /api/ledger/{kind}", s.handleListEntries)
	mux.HandleFunc("POST /api/ledger/{kind}", s.handleAddEntry)
	mux.HandleFunc("PUT /api/ledger/{kind}/{id}", s.handleEditEntry)
	mux.HandleFunc("DELETE /api/ledger/{kind}/{id}", s.handleRemoveEntry)

	mux.HandleFunc("GET /api/salary", s.handleGetSalary)
	mux.HandleFunc("PUT /api/salary", s.handleSetSalary)
	mux.HandleFunc("POST /api/salary/extras", s.handleAddExtra)
	mux.HandleFunc("PATCH /api/salary/extras/{id}", s.handleUpdateExtra)
	mux.HandleFunc("DELETE /api/salary/extras/{id}", s.handleRemoveExtra)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(h)
	h = applog.RequestIDMiddleware(trace.RequestID)(h)
	h = applog.Middleware(logger)(h)
	h = s.detector.Middleware(logger.WithComponent(applog.ComponentSecurity).Logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// fail writes the response for a failed operation. Server-side failures are
// logged with the request logger; rejected input is not.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Operation failed", err, op)
	}
	resp.Write(w)
}
