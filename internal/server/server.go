// Package server wires handlers, middleware and routes together and owns
// the HTTP server lifecycle. This is the composition root: every dependency
// in the app is constructed in New, in one place.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/bookmarks/internal/auth"
	"github.com/sakif/bookmarks/internal/handler"
	"github.com/sakif/bookmarks/internal/middleware"
	sqliteRepo "github.com/sakif/bookmarks/internal/repository/sqlite"
	"github.com/sakif/bookmarks/internal/service"
)

// Config holds server configuration, loaded from the environment in
// cmd/server/main.go.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
}

// Server bundles the router with the resources it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates the full dependency graph:
//
//	sqlite.DB → services (bookmark, auth) → handlers → routes
//
// Each layer receives interfaces or services, never the layers beneath them.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens)

	return s, nil
}

// setupRoutes configures middleware and the route table:
//
//	GET    /{shortURL}                   → public redirect (+ visit count)
//	POST   /api/v1/auth/register         → create account
//	POST   /api/v1/auth/login            → issue access+refresh tokens
//	GET    /api/v1/auth/me               → caller's profile        [access]
//	GET    /api/v1/auth/token/refresh    → new access token        [refresh]
//	GET    /api/v1/bookmarks             → list, paginated         [access]
//	POST   /api/v1/bookmarks             → create                  [access]
//	GET    /api/v1/bookmarks/stats       → per-bookmark visits     [access]
//	GET    /api/v1/bookmarks/{id}        → fetch one               [access]
//	PUT    /api/v1/bookmarks/{id}        → edit                    [access]
//	PATCH  /api/v1/bookmarks/{id}        → edit                    [access]
//	DELETE /api/v1/bookmarks/{id}        → delete                  [access]
//
// chi routes static segments before wildcards, so /api/v1/... never falls
// into the /{shortURL} catch-all, and /bookmarks/stats wins over
// /bookmarks/{id}.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	passwords := auth.NewPasswordService()

	bookmarkService := service.NewBookmarkService(s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)

	bookmarkHandler := handler.NewBookmarkHandler(bookmarkService, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	redirectHandler := handler.NewRedirectHandler(bookmarkService, s.logger)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)

			r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
			r.With(auth.RequireRefresh(tokens)).Get("/token/refresh", authHandler.HandleRefresh)
		})

		r.Route("/bookmarks", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/", bookmarkHandler.HandleList)
			r.Post("/", bookmarkHandler.HandleCreate)
			r.Get("/stats", bookmarkHandler.HandleStats)
			r.Get("/{id}", bookmarkHandler.HandleGet)
			r.Put("/{id}", bookmarkHandler.HandleEdit)
			r.Patch("/{id}", bookmarkHandler.HandleEdit)
			r.Delete("/{id}", bookmarkHandler.HandleDelete)
		})
	})

	// Public redirect — last, as the root-level catch-all.
	s.router.Get("/{shortURL}", redirectHandler.HandleRedirect)
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30s,
// close the database (flushes the WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the configured router for tests that drive the full HTTP
// stack with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}
