// Package http exposes the transaction store and aggregation engine as a
// JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"financeflow/internal/cache"
	applog "financeflow/internal/log"
	"financeflow/internal/store"
	"financeflow/internal/summary"
)

// ExportPublisher hands a transaction id to the export pipeline. A nil
// publisher disables exporting.
type ExportPublisher interface {
	PublishExport(ctx context.Context, transactionID string) error
}

type Server struct {
	http.Server

	store      *store.Store
	publisher  ExportPublisher
	summaryGen summary.Generator

	summaryCache *cache.LRUCache[string]
	cacheManager *cache.Manager

	rateLimiter  *rateLimiter
	metrics      securityMetrics
	logs         *applog.StructuredLogger
	shutdownOnce sync.Once
}

// Options configures a Server. Store is required; Publisher and SummaryGen
// may be nil, which disables the export hook and the summary endpoint
// respectively.
type Options struct {
	Addr                 string
	Store                *store.Store
	Publisher            ExportPublisher
	SummaryGen           summary.Generator
	SummaryCacheSize     int
	SummaryTTL           time.Duration
	CacheCleanupInterval time.Duration
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	if opts.SummaryCacheSize <= 0 {
		opts.SummaryCacheSize = 64
	}
	if opts.SummaryTTL <= 0 {
		opts.SummaryTTL = 15 * time.Minute
	}
	if opts.CacheCleanupInterval <= 0 {
		opts.CacheCleanupInterval = 5 * time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		store:        opts.Store,
		publisher:    opts.Publisher,
		summaryGen:   opts.SummaryGen,
		summaryCache: cache.NewLRUCache[string](opts.SummaryCacheSize, opts.SummaryTTL),
		cacheManager: cache.NewManager(),
		rateLimiter:  newRateLimiter(),
		logs: applog.NewStructuredLogger(applog.New(applog.Config{
			Component: applog.ComponentHTTP,
			Handler:   slog.Default().Handler(),
		})),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(opts.CacheCleanupInterval)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/transactions", s.secured(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.secured(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.secured(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.secured(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transactions/delete", s.secured(s.handleBulkDeleteTransactions))

	mux.HandleFunc("GET /api/categories", s.secured(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.secured(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{name}", s.secured(s.handleRenameCategory))
	mux.HandleFunc("DELETE /api/categories/{name}", s.secured(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/history", s.secured(s.handleHistory))
	mux.HandleFunc("GET /api/overview", s.secured(s.handleOverview))
	mux.HandleFunc("GET /api/breakdown", s.secured(s.handleBreakdown))
	mux.HandleFunc("GET /api/calendar", s.secured(s.handleCalendar))

	mux.HandleFunc("GET /api/budgets", s.secured(s.handleListBudgets))
	mux.HandleFunc("PUT /api/budgets/{category}", s.secured(s.handleSetBudget))
	mux.HandleFunc("DELETE /api/budgets/{category}", s.secured(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/summary", s.secured(s.handleSummary))
	mux.HandleFunc("GET /api/export", s.secured(s.handleExportCSV))

	return s
}

// secured adds security headers, rate limiting and request logging.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, &s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				"request_id", requestID,
				"client_ip", clientIP,
				"method", r.Method,
				"url", r.URL.Path)
		}

		// Mutations are rate limited per client IP.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, &s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logs.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops the HTTP server and the background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
