// Package server provides the HTTP REST API for profiles and documents.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/profile"
	"github.com/jonathan/profile-engine/internal/scoring"
	"github.com/jonathan/profile-engine/internal/server/middleware"
	"github.com/jonathan/profile-engine/internal/server/ratelimit"
	"github.com/jonathan/profile-engine/internal/types"
)

// ProfileService is the set of profile operations the API exposes.
// *profile.Service implements it.
type ProfileService interface {
	CreateProfile(ctx context.Context, userID uuid.UUID) (*db.Profile, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*db.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd types.ProfileUpdate, image *profile.Upload) (*db.Profile, error)
	ScoreBreakdown(ctx context.Context, userID uuid.UUID) (scoring.Breakdown, error)

	UploadResume(ctx context.Context, userID uuid.UUID, up profile.Upload) (*db.Document, error)
	UploadDocument(ctx context.Context, userID uuid.UUID, docType db.DocType, up profile.Upload) (*db.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) error
	SetDefaultResume(ctx context.Context, userID, documentID uuid.UUID) error
	ListDocuments(ctx context.Context, userID uuid.UUID) ([]db.Document, error)
	GetDocument(ctx context.Context, userID, documentID uuid.UUID) (*db.Document, error)
	GetDefaultResume(ctx context.Context, userID uuid.UUID) (*db.Document, error)

	AddExperience(ctx context.Context, userID uuid.UUID, req types.ExperienceRequest) (*db.Experience, error)
	RemoveExperience(ctx context.Context, userID, id uuid.UUID) error
	AddEducation(ctx context.Context, userID uuid.UUID, req types.EducationRequest) (*db.Education, error)
	RemoveEducation(ctx context.Context, userID, id uuid.UUID) error
	AssignSkill(ctx context.Context, userID uuid.UUID, req types.SkillRequest) (*db.Skill, error)
	UnassignSkill(ctx context.Context, userID, skillID uuid.UUID) error
	ListSkills(ctx context.Context, userID uuid.UUID) ([]db.Skill, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

var _ ProfileService = (*profile.Service)(nil)

// Config holds server configuration
type Config struct {
	Port int
	// MaxUploadBytes bounds a multipart request body. It should exceed the
	// largest per-file limit so oversized files reach the service's check.
	MaxUploadBytes int64
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Profiles ProfileService
	Tokens   middleware.TokenValidator
	Ready    Pinger             // optional; /ready reports ok when nil
	Limiter  *ratelimit.Limiter // optional
	Log      *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	profiles    ProfileService
	ready       Pinger
	rateLimiter *ratelimit.Limiter
	log         *zap.Logger
	cfg         Config
	handler     http.Handler
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Profiles == nil {
		return nil, errors.New("server requires a profile service")
	}
	if deps.Tokens == nil {
		return nil, errors.New("server requires a token validator")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		profiles:    deps.Profiles,
		ready:       deps.Ready,
		rateLimiter: deps.Limiter,
		log:         log.Named("http"),
		cfg:         cfg,
	}

	auth := middleware.AuthMiddleware(deps.Tokens, s.log)
	protect := func(h http.HandlerFunc) http.Handler {
		return auth(s.withRateLimit(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	// Account provisioning hook
	mux.Handle("POST /users/{id}/profile", protect(s.handleCreateProfile))

	// Profile endpoints
	mux.Handle("GET /me/profile", protect(s.handleGetProfile))
	mux.Handle("PUT /me/profile", protect(s.handleUpdateProfile))
	mux.Handle("GET /me/profile/score", protect(s.handleGetScore))

	// Document endpoints
	mux.Handle("GET /me/documents", protect(s.handleListDocuments))
	mux.Handle("POST /me/documents", protect(s.handleUploadDocument))
	mux.Handle("POST /me/documents/resume", protect(s.handleUploadResume))
	mux.Handle("GET /me/documents/default", protect(s.handleGetDefaultResume))
	mux.Handle("GET /me/documents/{id}", protect(s.handleGetDocument))
	mux.Handle("DELETE /me/documents/{id}", protect(s.handleDeleteDocument))
	mux.Handle("PUT /me/documents/{id}/default", protect(s.handleSetDefaultResume))

	// Profile entry endpoints
	mux.Handle("POST /me/experiences", protect(s.handleAddExperience))
	mux.Handle("DELETE /me/experiences/{id}", protect(s.handleRemoveExperience))
	mux.Handle("POST /me/education", protect(s.handleAddEducation))
	mux.Handle("DELETE /me/education/{id}", protect(s.handleRemoveEducation))
	mux.Handle("GET /me/skills", protect(s.handleListSkills))
	mux.Handle("POST /me/skills", protect(s.handleAssignSkill))
	mux.Handle("DELETE /me/skills/{id}", protect(s.handleUnassignSkill))

	s.handler = s.withRecover(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves requests until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
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

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// withLogging writes one access log line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", s.extractClientID(r)))
	})
}

// withRecover turns a handler panic into a 500.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.log.Error("handler panic",
					zap.Any("panic", v),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()))
				s.errorResponse(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRateLimit throttles per authenticated user, falling back to the
// client IP.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		clientID := s.extractClientID(r)
		if userID, err := middleware.GetUserID(r); err == nil {
			clientID = userID.String()
		}

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the database is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.log.Warn("readiness check failed", zap.Error(err))
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
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// extractClientID returns the IP address from RemoteAddr.
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
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		retry := int(info.RetryAfter.Round(time.Second).Seconds())
		if retry < 1 {
			retry = 1
		}
		response["retry_after"] = retry
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
