// Package server exposes the hourmaster HTTP API: account registration and
// login, the evaluated summary and state, and settings management. All
// responses use the envelope from the proto package.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/hourmaster/activity"
	"github.com/hazyhaar/hourmaster/idgen"
	"github.com/hazyhaar/hourmaster/proto"
	"github.com/hazyhaar/hourmaster/store"
)

// Server wires the HTTP handlers to the store and the evaluation service.
type Server struct {
	store    *store.Store
	activity *activity.Service
	newToken idgen.Generator
	now      func() time.Time
	log      *slog.Logger
}

// New creates a Server. A nil logger falls back to slog.Default.
func New(st *store.Store, act *activity.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:    st,
		activity: act,
		newToken: idgen.NanoID(32),
		now:      time.Now,
		log:      log,
	}
}

// Handler returns the full route tree, mounted under /1.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Route("/1", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/user/validate_email/{token}", s.handleValidateEmail)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/summary", s.handleSummary)
			r.Get("/state", s.handleState)
			r.Get("/settings", s.handleGetSettings)
			r.Post("/settings", s.handleUpdateSettings)
			r.Post("/settings/provider", s.handleUpdateProvider)
			r.Get("/user", s.handleGetUser)
			r.Post("/user", s.handleUpdateUser)
			r.Post("/overrides", s.handleSetOverride)
		})
	})
	return r
}

type ctxKey int

const ctxKeyUserID ctxKey = iota

// userID returns the authenticated user id stored by requireAuth.
func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxKeyUserID).(int64)
	return id
}

// requireAuth resolves the bearer token to a user id or rejects with 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			proto.WriteError(w, proto.ErrUnauthorized)
			return
		}
		id, err := s.store.UserIDForToken(r.Context(), token)
		if err != nil {
			proto.WriteError(w, proto.ErrUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request at info level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
