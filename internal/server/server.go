package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/server/middleware"
	"github.com/jonathan/hiring-pipeline/internal/server/ratelimit"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

const defaultMaxUploadBytes = 5 << 20

// Config holds server configuration
type Config struct {
	Port           int
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Options carries the services the server routes requests to.
type Options struct {
	Workflow *workflow.Service
	Accounts *AccountService
	JWT      *JWTService
	Logger   *logging.Logger
	// Limiter is optional; nil disables rate limiting.
	Limiter *ratelimit.Limiter
	// Health is optional and backs GET /health.
	Health func(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	workflow    *workflow.Service
	accounts    *AccountService
	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
	health      func(ctx context.Context) error
	validator   *validator.Validate
	corsOrigins []string
	maxUpload   int64
	auth        func(http.Handler) http.Handler
}

// New creates a new server instance
func New(cfg Config, opts Options) (*Server, error) {
	if opts.Workflow == nil || opts.Accounts == nil || opts.JWT == nil {
		return nil, errors.New("server: workflow, accounts and jwt services are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		workflow:    opts.Workflow,
		accounts:    opts.Accounts,
		jwtService:  opts.JWT,
		rateLimiter: opts.Limiter,
		logger:      logger.With("component", "http"),
		health:      opts.Health,
		validator:   validator.New(),
		corsOrigins: cfg.CORSOrigins,
		maxUpload:   cfg.MaxUploadBytes,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUploadBytes
	}
	s.auth = middleware.AuthMiddleware(s.jwtService.AsTokenValidator())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Accounts
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.Handle("GET /auth/me", s.protect(s.handleMe))

	// Profiles
	mux.Handle("PUT /hr/profile", s.protect(s.handleHRProfile, types.RoleHR))
	mux.Handle("POST /resume", s.protect(s.handleResume, types.RoleHR, types.RoleCandidate))

	// HR to admin mapping
	mux.Handle("GET /hr/admins", s.protect(s.handleListAdmins, types.RoleHR))
	mux.Handle("POST /hr/applications", s.protect(s.handleApply, types.RoleHR))
	mux.Handle("POST /admin/invitations", s.protect(s.handleInviteHR, types.RoleAdmin))
	mux.Handle("GET /requests", s.protect(s.handleListRequests))
	mux.Handle("GET /requests/{id}", s.protect(s.handleGetRequest))
	mux.Handle("POST /requests/{id}/accept", s.protect(s.handleAcceptRequest))
	mux.Handle("POST /requests/{id}/reject", s.protect(s.handleRejectRequest))
	mux.Handle("POST /requests/{id}/cancel", s.protect(s.handleCancelRequest))
	mux.Handle("POST /hr/{id}/unmap", s.protect(s.handleUnmap, types.RoleHR, types.RoleAdmin))

	// Administration
	mux.Handle("GET /admin/actors", s.protect(s.handleListActors, types.RoleAdmin))
	mux.Handle("GET /admin/actors/{id}", s.protect(s.handleGetActor, types.RoleAdmin))
	mux.Handle("DELETE /admin/actors/{id}", s.protect(s.handleRemoveActor, types.RoleAdmin))
	mux.Handle("GET /admin/stats", s.protect(s.handleStats, types.RoleAdmin))
	mux.Handle("GET /admin/hr", s.protect(s.handleSupervisedHR, types.RoleAdmin))
	mux.Handle("GET /admin/assignable", s.protect(s.handleAssignable, types.RoleAdmin))
	mux.Handle("POST /admin/assignments", s.protect(s.handleAssign, types.RoleAdmin))

	// Candidate assignment
	mux.Handle("GET /hr/candidates", s.protect(s.handleListCandidates, types.RoleHR))
	mux.Handle("POST /hr/candidates/{id}/invite", s.protect(s.handleInviteCandidate, types.RoleHR))

	// Interviews
	mux.Handle("POST /interviews", s.protect(s.handleScheduleInterview, types.RoleHR))
	mux.Handle("GET /interviews", s.protect(s.handleListInterviews))
	mux.Handle("GET /interviews/{id}", s.protect(s.handleGetInterview))
	mux.Handle("POST /interviews/{id}/start", s.protect(s.handleStartInterview, types.RoleCandidate))
	mux.Handle("POST /interviews/{id}/answers", s.protect(s.handleSubmitAnswers, types.RoleCandidate))
	mux.Handle("POST /interviews/{id}/ai-evaluation", s.protect(s.handleAIEvaluation, types.RoleHR, types.RoleAdmin))
	mux.Handle("PUT /interviews/{id}/responses/{question_id}/score", s.protect(s.handleManualScore, types.RoleHR))
	mux.Handle("POST /interviews/{id}/evaluation", s.protect(s.handleSubmitEvaluation, types.RoleHR))

	// Inbox
	mux.Handle("GET /messages", s.protect(s.handleListMessages))
	mux.Handle("POST /messages/read", s.protect(s.handleMarkRead))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // oracle calls can be slow
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.logger.Info("server stopped")
	return nil
}

// protect requires a valid bearer token and, when roles are given, one of them.
func (s *Server) protect(h http.HandlerFunc, roles ...types.Role) http.Handler {
	return s.auth(middleware.RequireRole(roles...)(h))
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	wildcard := len(s.corsOrigins) == 0 || slices.Contains(s.corsOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", s.extractClientID(r),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", "error", err)
	}
}

// errorResponse maps err to a status and writes the error body.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, body := NewErrorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.jsonResponse(w, status, body)
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Message: "invalid request body"}
	}
	return s.validate(dst)
}

// decodeOptional is decode for endpoints whose body may be empty.
func (s *Server) decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return &ErrValidation{Message: "invalid request body"}
	}
	return s.validate(dst)
}

func (s *Server) validate(v any) error {
	if err := s.validator.Struct(v); err != nil {
		return extractValidationError(err)
	}
	return nil
}

// extractValidationError reports the first failed field of a validator error.
func extractValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Message: "invalid request"}
}

// pathID parses a uuid path value.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "must be a uuid"}
	}
	return id, nil
}

// caller returns the authenticated actor id. Routes are wrapped by protect,
// so a missing id means a wiring bug.
func caller(r *http.Request) uuid.UUID {
	id, _ := middleware.GetActorID(r)
	return id
}

// extractClientID extracts the client identifier from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	details := map[string]any{
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		details["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds() + 0.999)
		details["retry_after"] = secs
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	}

	s.logger.Warn("rate limit exceeded",
		"client", s.extractClientID(r), "path", r.URL.Path, "limit", info.Limit)

	s.jsonResponse(w, http.StatusTooManyRequests, ErrorResponse{
		Error:   "rate limit exceeded, try again later",
		Code:    "rate_limited",
		Details: details,
	})
}

// queryBool reports whether a query flag is set to a truthy value.
func queryBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
