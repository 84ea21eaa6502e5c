// Package http exposes the transaction store, the dashboard and the form
// rules as a JSON API.
package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"budget/internal/analytics"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
)

// TransactionStore is the part of services.TransactionStore the API uses.
type TransactionStore interface {
	Snapshot() services.Snapshot
	Add(ctx context.Context, d core.Draft) (services.AddResult, error)
	Subscribe() (<-chan services.Snapshot, func())
	Dirty() bool
}

// Dashboard computes summaries for a reference time.
type Dashboard interface {
	SummaryAt(ctx context.Context, ref time.Time) analytics.Summary
	Now() time.Time
}

// Pinger reports backend health for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server needs. Backend may be nil.
type Deps struct {
	Store     TransactionStore
	Dashboard Dashboard
	Backend   Pinger
	Logger    *log.Logger
	// Currency suffixes formatted amounts; defaults to core.DefaultCurrency.
	Currency string
	// RequestsPerMinute caps POST requests per client.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	store     TransactionStore
	dashboard Dashboard
	backend   Pinger
	logger    *log.Logger
	currency  string
	started   time.Time

	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter
	stopLimiter context.CancelFunc

	// done is closed when shutdown begins so event streams end.
	done         chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	currency := strings.TrimSpace(deps.Currency)
	if currency == "" {
		currency = core.DefaultCurrency
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:       deps.Store,
		dashboard:   deps.Dashboard,
		backend:     deps.Backend,
		logger:      logger.WithComponent(log.ComponentHTTP),
		currency:    currency,
		started:     time.Now(),
		tracer:      trace.NewMiddleware(logger, clientIP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		done:        make(chan struct{}),
	}

	var limiterCtx context.Context
	limiterCtx, s.stopLimiter = context.WithCancel(context.Background())
	go s.rateLimiter.Run(limiterCtx)

	s.RegisterOnShutdown(func() { s.stop() })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/validate", s.handleValidateTransaction)
	mux.HandleFunc("GET /api/form", s.handleNewForm)
	mux.HandleFunc("POST /api/form/amount", s.handleAmountInput)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(clientIP, []string{http.MethodPost}, s.onRateLimited)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, clientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

func (s *Server) stop() {
	s.shutdownOnce.Do(func() {
		close(s.done)
		s.stopLimiter()
	})
}

// Shutdown ends event streams, stops background work and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	return s.Server.Shutdown(ctx)
}

// clientIP prefers proxy headers, then the connection address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
