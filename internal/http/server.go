// Package http serves the balances and savings boards as a JSON API.
//
// The server keeps no per-user state: the page cursor and the exchange
// rate travel in the query string and every request refetches from the
// configured source.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/export"
	applog "finanzas/internal/log"
	"finanzas/internal/monthly"
	"finanzas/internal/services"
	"finanzas/internal/source"
	"finanzas/internal/storage"
)

// JournalReader is the read side of the mutation journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]storage.JournalEntry, error)
	Ping(ctx context.Context) error
}

// SheetsExporter pushes the merged series to a spreadsheet.
type SheetsExporter interface {
	Export(ctx context.Context, months []core.MergedMonth) (string, error)
}

// Deps are the collaborators of the server. Journal and Sheets are optional.
type Deps struct {
	Balances *services.BalanceService
	Savings  *services.SavingService
	Users    source.UserReader
	Journal  JournalReader
	Sheets   SheetsExporter

	// Rate is used when a request carries no exchg_rate.
	Rate         decimal.Decimal
	ItemsPerPage int
	Logger       *applog.Logger
	Now          func() time.Time
}

// Server is an http.Server wired with the finance routes.
type Server struct {
	http.Server
	balances *services.BalanceService
	savings  *services.SavingService
	users    source.UserReader
	journal  JournalReader
	sheets   SheetsExporter

	rate         decimal.Decimal
	itemsPerPage int
	now          func() time.Time

	logger       *applog.Logger
	access       *applog.StructuredLogger
	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		balances:     deps.Balances,
		savings:      deps.Savings,
		users:        deps.Users,
		journal:      deps.Journal,
		sheets:       deps.Sheets,
		rate:         deps.Rate,
		itemsPerPage: deps.ItemsPerPage,
		now:          deps.Now,
		logger:       logger,
		access:       applog.NewStructuredLogger(logger),
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
	}
	if s.rate.IsZero() {
		s.rate = decimal.NewFromInt(1)
	}
	if s.itemsPerPage <= 0 {
		s.itemsPerPage = monthly.DefaultItemsPerPage
	}
	if s.now == nil {
		s.now = time.Now
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/balances", s.wrap(s.handleBalances))
	mux.HandleFunc("POST /api/balances/close-out", s.wrap(s.handleCloseOut))

	mux.HandleFunc("GET /api/savings", s.wrap(s.handleSavings))
	mux.HandleFunc("DELETE /api/savings/{id}", s.wrap(s.handleDeleteSaving))
	mux.HandleFunc("POST /api/savings/{id}/finalize", s.wrap(s.handleFinalizeSaving))
	mux.HandleFunc("GET /api/savings/currencies", s.wrap(s.handleCurrencies))
	mux.HandleFunc("GET /api/savings/series", s.wrap(s.handleSeries))

	mux.HandleFunc("GET /api/export", s.wrap(s.handleExport))
	mux.HandleFunc("GET /api/journal", s.wrap(s.handleJournal))
	mux.HandleFunc("GET /api/me", s.wrap(s.handleMe))

	return s
}

// Shutdown stops the rate limiter cleanup and the HTTP server, once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// wrap adds the request id, access logs, security headers and the rate
// limit of mutating methods.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		ctx := applog.WithLogger(r.Context(), s.logger)
		ctx = applog.WithRequestID(ctx, generateRequestID())
		r = r.WithContext(ctx)
		s.access.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		setSecurityHeaders(w)
		w.Header().Set("X-Request-ID", applog.RequestID(ctx))

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			s.access.LogHTTPEnd(ctx, r, http.StatusTooManyRequests, time.Since(start).Milliseconds(), clientIP)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.access.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter captures the status code for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks the journal when one is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.journal != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.journal.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("journal unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

var _ SheetsExporter = (*export.SheetsExporter)(nil)
