// Package server owns the HTTP surface of the panel: the chi router, the
// middleware chain, and graceful lifecycle.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/engine"
	"github.com/shellboard/shellboard/internal/handler"
	"github.com/shellboard/shellboard/internal/openapi"
	"github.com/shellboard/shellboard/internal/registry"
	"github.com/shellboard/shellboard/internal/restore"
	"github.com/shellboard/shellboard/internal/server/middleware"
	"github.com/shellboard/shellboard/internal/service"
	"github.com/shellboard/shellboard/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	TLSCertFile     string
	TLSKeyFile      string
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"*"},
		LoginRateLimit:  10,
		LoginRateWindow: time.Minute,
	}
}

// Deps bundles the subsystems the server routes to.
type Deps struct {
	Store    *store.Store
	Auth     *service.AuthService
	Engine   *engine.Engine
	Registry *registry.Registry
	Restorer *restore.Restorer
	Audit    *audit.Recorder
}

// Server is the top-level HTTP server. Call ListenAndServe to start
// accepting connections; it blocks until SIGINT/SIGTERM and then drains.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{cfg: cfg, deps: deps, logger: logger}
	s.setupRouter()
	return s
}

// ServeHTTP makes the server usable directly in tests via httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/openapi.json", openapi.NewHandler().ServeSpec)

	authHandler := handler.NewAuthHandler(s.deps.Auth)
	cmdHandler := handler.NewCommandHandler(s.deps.Engine)
	scriptHandler := handler.NewScriptHandler(s.deps.Registry, s.deps.Engine)
	userHandler := handler.NewUserHandler(s.deps.Store, s.deps.Audit)
	settingHandler := handler.NewSettingHandler(s.deps.Store, s.deps.Audit)
	logHandler := handler.NewLogHandler(s.deps.Store)
	restoreHandler := handler.NewRestoreHandler(s.deps.Store, s.deps.Restorer)

	r.Route("/api", func(r chi.Router) {
		// Login is unauthenticated but rate limited per IP; the public
		// settings subset feeds the login page before a token exists.
		r.Group(func(r chi.Router) {
			r.Use(middleware.LoginRateLimit(s.cfg.LoginRateLimit, s.cfg.LoginRateWindow))
			r.Post("/auth/login", authHandler.Login)
		})
		r.Get("/settings/public", settingHandler.ListPublic)

		// Everything else needs a live session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.deps.Auth))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.Post("/commands/execute", cmdHandler.Execute)

			r.Post("/scripts/upload", scriptHandler.Upload)
			r.Get("/scripts", scriptHandler.List)
			r.Post("/scripts/execute", scriptHandler.Execute)
			r.Delete("/scripts/{id}", scriptHandler.Delete)

			r.Get("/settings", settingHandler.List)

			// Admin-only surface.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())

				r.Get("/logs", logHandler.List)

				r.Get("/users", userHandler.List)
				r.Post("/users", userHandler.Create)
				r.Put("/users/{id}", userHandler.Update)
				r.Delete("/users/{id}", userHandler.Delete)

				r.Put("/settings/{key}", settingHandler.Upsert)
				r.Delete("/settings/{key}", settingHandler.Delete)

				r.Get("/restore/targets", restoreHandler.ListTargets)
				r.Post("/restore/targets", restoreHandler.CreateTarget)
				r.Delete("/restore/targets/{id}", restoreHandler.DeleteTarget)
				r.Post("/restore/targets/{name}/restore", restoreHandler.Restore)
			})
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store answers,
// 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.deps.Store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // executions can take up to the engine timeout
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		var err error
		if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
