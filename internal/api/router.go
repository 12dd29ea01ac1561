package api

import (
	"context"
	"net/http"
	"time"

	"github.com/skillpath/skillpath/internal/api/handlers"
	"github.com/skillpath/skillpath/internal/api/middleware"
	"github.com/skillpath/skillpath/internal/auth"
	"github.com/skillpath/skillpath/internal/config"
	"github.com/skillpath/skillpath/internal/events"
)

// ReadyCheck reports whether a backing dependency is reachable.
type ReadyCheck func(ctx context.Context) error

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux      *http.ServeMux
	auth     *handlers.AuthHandler
	profiles *handlers.ProfileHandler
	skills   *handlers.SkillHandler
	events   *handlers.EventHandler
	service  *auth.Service
	ready    ReadyCheck
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg *config.Config, service *auth.Service, bus *events.Bus, ready ReadyCheck) http.Handler {
	r := &Router{
		mux:     http.NewServeMux(),
		service: service,
		ready:   ready,
	}

	r.auth = handlers.NewAuthHandler(service, !cfg.Debug, cfg.SessionMaxAge)
	r.profiles = handlers.NewProfileHandler(service)
	r.skills = handlers.NewSkillHandler(service)
	r.events = handlers.NewEventHandler(bus)

	r.registerRoutes()

	return r.buildMiddlewareChain(r.mux, cfg)
}

func (r *Router) registerRoutes() {
	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// Auth (no session required)
	r.mux.HandleFunc("POST /api/v1/auth/register", r.auth.Register)
	r.mux.HandleFunc("POST /api/v1/auth/verify", r.auth.Verify)
	r.mux.HandleFunc("POST /api/v1/auth/resend", r.auth.Resend)
	r.mux.HandleFunc("POST /api/v1/auth/login", r.auth.Login)
	r.mux.HandleFunc("POST /api/v1/auth/logout", r.auth.Logout)
	r.mux.HandleFunc("GET /api/v1/auth/me", r.auth.Me)
	r.mux.HandleFunc("POST /api/v1/auth/refresh", r.auth.Refresh)

	// Profile (requires session)
	r.mux.HandleFunc("GET /api/v1/profile", r.requireSession(r.profiles.Get))
	r.mux.HandleFunc("POST /api/v1/profile", r.requireSession(r.profiles.Create))

	// Skills (requires session)
	r.mux.HandleFunc("GET /api/v1/skills", r.requireSession(r.skills.List))
	r.mux.HandleFunc("POST /api/v1/skills", r.requireSession(r.skills.Create))

	// Session event stream
	r.mux.HandleFunc("GET /api/v1/session/events", r.events.Stream)
}

func (r *Router) buildMiddlewareChain(handler http.Handler, cfg *config.Config) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	// Skip rate limiting in debug mode for easier development
	if !cfg.Debug {
		handler = middleware.RateLimit(middleware.DefaultRateLimitConfig())(handler)
	}

	handler = middleware.RequestID(handler)
	handler = middleware.CORS(handler)

	return handler
}

// requireSession wraps a handler with session authentication
func (r *Router) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token := handlers.SessionToken(req)
		if token == "" {
			Unauthorized(w, req, "authentication required")
			return
		}

		session, err := r.service.CurrentSession(req.Context(), token)
		if err != nil {
			Unauthorized(w, req, "invalid or expired session")
			return
		}

		ctx := context.WithValue(req.Context(), handlers.ContextKeySession, session)
		next(w, req.WithContext(ctx))
	}
}

// Health check handlers
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	if r.ready != nil {
		if err := r.ready(req.Context()); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"checks": map[string]string{
					"database": "unhealthy",
				},
			})
			return
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}
