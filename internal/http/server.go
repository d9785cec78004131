package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

// Server is the JSON API over the ledger services.
type Server struct {
	http.Server
	store    storage.Store
	ledger   *services.LedgerService
	payments *services.PaymentService
	profits  *services.ProfitRecalculator
	logger   *log.Logger

	rateLimiter *rateLimiter
	metrics     *securityMetrics
	started     time.Time
	now         func() time.Time

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit sets the number of mutating requests allowed per client IP
// per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.rateLimiter.stop()
		s.rateLimiter = newRateLimiter(perMinute)
	}
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, b *backend.Backend, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		store:       b.Store,
		ledger:      b.Ledger,
		payments:    b.Payments,
		profits:     b.Profits,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(defaultRateLimit),
		metrics:     &securityMetrics{},
		started:     time.Now(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	for _, route := range []struct {
		path string
		kind core.EntryKind
	}{
		{"/api/incomes", core.KindIncome},
		{"/api/expenses", core.KindExpense},
	} {
		mux.HandleFunc("POST "+route.path, s.handleCreateEntry(route.kind))
		mux.HandleFunc("GET "+route.path, s.handleListEntries(route.kind))
		mux.HandleFunc("GET "+route.path+"/{id}", s.handleGetEntry(route.kind))
		mux.HandleFunc("PATCH "+route.path+"/{id}", s.handleUpdateEntry(route.kind))
		mux.HandleFunc("DELETE "+route.path+"/{id}", s.handleSoftDeleteEntry(route.kind))
		mux.HandleFunc("POST "+route.path+"/{id}/restore", s.handleRestoreEntry(route.kind))
		mux.HandleFunc("DELETE "+route.path+"/{id}/permanent", s.handleHardDeleteEntry(route.kind))
	}

	mux.HandleFunc("POST /api/payments", s.handleCreatePayment)
	mux.HandleFunc("GET /api/payments", s.handleListPayments)
	mux.HandleFunc("GET /api/payments/{id}", s.handleGetPayment)
	mux.HandleFunc("PATCH /api/payments/{id}", s.handleUpdatePayment)
	mux.HandleFunc("DELETE /api/payments/{id}", s.handleSoftDeletePayment)
	mux.HandleFunc("POST /api/payments/{id}/complete", s.handleCompletePayment)
	mux.HandleFunc("POST /api/payments/{id}/restore", s.handleRestorePayment)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/summary/recalculate", s.handleRecalculate)
	mux.HandleFunc("GET /api/summary/verify", s.handleVerify)

	s.Handler = log.Middleware(logger)(s.withSecurity(mux))
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
