// Package http exposes the JSON API: profiles, incomes, expenses,
// taxonomy, goals and the dashboard/report endpoints.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"grana/internal/cache"
	"grana/internal/report"
	"grana/internal/services"
	"grana/internal/storage"
)

// Dashboard responses are cached briefly per profile; any write through
// the API for that profile drops the cached entry.
const (
	dashboardCacheSize = 64
	dashboardCacheTTL  = 30 * time.Second
)

type Server struct {
	http.Server
	repo         *storage.Repository
	transactions *services.TransactionService
	engine       *report.Engine
	rateLimiter  *rateLimiter
	dashboards   *cache.LRU[*report.DashboardPayload]
	janitor      *cache.Janitor
	shutdownOnce sync.Once
}

// rateLimiter tracks write requests per client IP. There is no background
// goroutine; stale entries are swept inline, at most once per sweepEvery,
// by whichever request happens to trigger it.
type rateLimiter struct {
	mu        sync.Mutex
	perMinute int
	clients   map[string]*clientInfo
	lastSweep time.Time
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

const (
	sweepEvery = 5 * time.Minute
	staleAfter = 10 * time.Minute
)

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute < 1 {
		perMinute = 60
	}
	return &rateLimiter{
		perMinute: perMinute,
		clients:   make(map[string]*clientInfo),
		lastSweep: time.Now(),
	}
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > sweepEvery {
		for ip, client := range rl.clients {
			if now.Sub(client.lastRequest) > staleAfter {
				delete(rl.clients, ip)
			}
		}
		rl.lastSweep = now
	}

	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// The counter resets a minute after the last request.
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now

	return client.requests <= rl.perMinute
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, repo *storage.Repository, transactions *services.TransactionService, engine *report.Engine, requestsPerMinute int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:         repo,
		transactions: transactions,
		engine:       engine,
		rateLimiter:  newRateLimiter(requestsPerMinute),
		dashboards:   cache.NewLRU[*report.DashboardPayload](dashboardCacheSize, dashboardCacheTTL),
		janitor:      cache.NewJanitor(),
	}
	s.janitor.Register(s.dashboards)
	s.janitor.Start(time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /profiles", s.withCommon(s.handleCreateProfile))
	mux.HandleFunc("GET /profiles", s.withCommon(s.handleListProfiles))
	mux.HandleFunc("GET /profiles/{id}", s.withCommon(s.handleGetProfile))
	mux.HandleFunc("DELETE /profiles/{id}", s.withCommon(s.handleDeleteProfile))
	mux.HandleFunc("POST /profiles/{id}/verify-pin", s.withCommon(s.handleVerifyPIN))

	s.registerTransactionRoutes(mux)
	s.registerTaxonomyRoutes(mux)
	s.registerGoalRoutes(mux)

	mux.HandleFunc("GET /dashboard", s.withCommon(s.handleDashboard))
	mux.HandleFunc("GET /reports/monthly", s.withCommon(s.handleMonthlyReport))
	mux.HandleFunc("GET /reports/annual", s.withCommon(s.handleAnnualReport))
	mux.HandleFunc("GET /activity", s.withCommon(s.handleListActivity))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.janitor != nil {
			s.janitor.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func dashboardKey(profileID int64) string {
	return fmt.Sprintf("dashboard:%d", profileID)
}

// invalidateDashboard drops the cached dashboard after any write that
// would change what it shows.
func (s *Server) invalidateDashboard(profileID int64) {
	s.dashboards.Delete(dashboardKey(profileID))
}

// withCommon adds security headers, rate limiting on writes, a request ID
// and request logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
