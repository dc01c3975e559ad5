// Package http implements the REST API server: auth and transaction
// routes under /api, with the security, rate-limiting and request-logging
// middleware applied to every handler.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyUserID    ctxKey = "user_id"
)

type Server struct {
	http.Server

	repo      storage.Repository
	tokens    *auth.TokenIssuer
	publisher *events.Client

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. publisher may be nil when AMQP is not configured.
func NewServer(addr string, repo storage.Repository, tokens *auth.TokenIssuer, publisher *events.Client) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:        repo,
		tokens:      tokens,
		publisher:   publisher,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.withSecurity(s.handleSignup))
	mux.HandleFunc("POST /api/auth/login", s.withSecurity(s.handleLogin))
	mux.HandleFunc("GET /api/auth/check", s.withSecurity(s.requireAuth(s.handleCheck)))
	mux.HandleFunc("PUT /api/auth/update-profile", s.withSecurity(s.requireAuth(s.handleUpdateProfile)))

	mux.HandleFunc("POST /api/transactions/addTransaction", s.withSecurity(s.requireAuth(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions/getTransactions", s.withSecurity(s.requireAuth(s.handleListTransactions)))
	mux.HandleFunc("GET /api/transactions/recent", s.withSecurity(s.requireAuth(s.handleRecentTransactions)))
	mux.HandleFunc("GET /api/transactions/summary", s.withSecurity(s.requireAuth(s.handleSummary)))
	mux.HandleFunc("PUT /api/transactions/updateTransaction/{id}", s.withSecurity(s.requireAuth(s.handleUpdateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/deleteTransaction/{id}", s.withSecurity(s.requireAuth(s.handleDeleteTransaction)))

	return s
}

// Shutdown gracefully stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurity adds security headers, rate limiting on mutations, and
// request logging with a generated request id.
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Forwarded headers are client-controlled and would let a
		// caller pick its own rate-limit bucket, so the connection
		// address is the only key.
		clientIP := remoteHost(r.RemoteAddr)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		slog.DebugContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// requireAuth extracts and verifies the bearer credential, attaching the
// user id to the request context. The canonical scheme is
// "Authorization: Bearer <token>"; the legacy "token" header the original
// web client sends on read endpoints is accepted as a fallback.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		userID, err := s.tokens.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next(w, r.WithContext(ctx))
	}
}

// remoteHost strips the port from a connection address.
func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return r.Header.Get("token")
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyUserID).(string)
	return id
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request id for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
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
