// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and it owns every long-lived resource:
//   - the relational store (sqlstore.DB)
//   - the result cache (in-process, or redis when redis_url is set)
//   - the GraphQL pipeline, whose background cache writes must finish
//     before the cache is closed
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → New():
//	  sqlstore.DB ─┬→ AuthService ───────────────→ AuthHandler (/auth/*)
//	               └→ graph.Engine ← graph.NewFields(BoardService, feed)
//	  cache.Cache ───→ graph.Pipeline ─┘                 ↓
//	                                          GraphQLHandler (/api/graphql)
//
// This is the "composition root" pattern: all dependencies are wired in one
// place rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/linkboard/internal/auth"
	"github.com/sakif/linkboard/internal/cache"
	rediscache "github.com/sakif/linkboard/internal/cache/redis"
	"github.com/sakif/linkboard/internal/config"
	"github.com/sakif/linkboard/internal/feed"
	"github.com/sakif/linkboard/internal/graph"
	"github.com/sakif/linkboard/internal/handler"
	"github.com/sakif/linkboard/internal/middleware"
	"github.com/sakif/linkboard/internal/repository/sqlstore"
	"github.com/sakif/linkboard/internal/service"
)

const (
	shutdownTimeout = 30 * time.Second
	oidcHTTPTimeout = 10 * time.Second
)

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    *sqlstore.DB
	cache    cache.Cache
	pipeline *graph.Pipeline
	tokens   *auth.SessionTokens
}

// New creates a Server from a validated configuration. version is reported
// by the version query.
//
// WIRING ORDER:
//  1. Store (runs migrations) and cache (pings redis)
//  2. Session tokens and the identity verifier
//  3. Services, the GraphQL field registry and engine
//  4. Handlers and routes
//
// Anything opened before a later step fails is closed again.
func New(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*Server, error) {
	// === STORE ===
	store, err := sqlstore.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// === CACHE ===
	c, err := newCache(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		cache:    c,
		pipeline: graph.NewPipeline(c, logger),
	}

	if err := s.setupRoutes(version); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// newCache picks redis when configured and the in-process cache otherwise.
func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, error) {
	if cfg.RedisURL == "" {
		logger.Info("using in-process cache")
		return cache.NewMemory(), nil
	}
	c, err := rediscache.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	logger.Info("using redis cache")
	return c, nil
}

// authClients converts the configured providers, sorted by name.
func authClients(cfg *config.Config) []auth.Client {
	out := make([]auth.Client, 0, len(cfg.AuthClients))
	for name, c := range cfg.AuthClients {
		out = append(out, auth.Client{
			Name:     name,
			ClientID: c.ID,
			Issuer:   auth.IssuerFromMetadataURL(c.MetadataURL),
			Icon:     c.Icon,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET|POST /api/graphql   → GraphQL (queries and mutations)
// POST     /auth/session  → sign in with a provider ID token
// POST     /auth/logout   → drop the session cookie
// GET      /auth/clients  → configured identity providers
// GET      /*             → SPA build, when static_dir is set
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts the real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with its request ID and timing
// 5. LoadIdentity: turns the session cookie into an Identity, or leaves
//    the request anonymous
func (s *Server) setupRoutes(version string) error {
	tokens, err := auth.NewSessionTokens(s.config.SessionSecret, s.config.SessionMaxAge)
	if err != nil {
		return err
	}
	s.tokens = tokens

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(auth.LoadIdentity(tokens))

	// === GraphQL ===
	deps := graph.Deps{
		Board:   service.NewBoardService(s.logger),
		Version: version,
	}
	if s.config.RedditEnabled() {
		deps.Images = feed.New(feed.Config{
			ClientID:     s.config.Reddit.ClientID,
			ClientSecret: s.config.Reddit.ClientSecret,
			UserAgent:    s.config.Reddit.UserAgent,
		}, s.logger)
	} else {
		s.logger.Warn("reddit credentials not set: earthPornImages will be empty")
	}

	engine, err := graph.NewEngine(graph.NewFields(deps), s.pipeline, s.store, s.logger)
	if err != nil {
		return err
	}
	gql := handler.NewGraphQLHandler(engine, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/graphql", gql.HandleGraphQL)
		r.Post("/graphql", gql.HandleGraphQL)
	})

	// === Auth ===
	verifier := auth.NewOIDCVerifier(authClients(s.config), &http.Client{Timeout: oidcHTTPTimeout})
	authService := service.NewAuthService(s.store, tokens, s.logger)
	authHandler := handler.NewAuthHandler(verifier, authService, tokens.MaxAge(), !s.config.DevMode, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/session", authHandler.HandleSession)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/clients", authHandler.HandleClients)
	})

	// === Static Files ===
	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}

	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Wait for background cache writes started by those requests
// 4. Close the cache, then the store
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("devMode", s.config.DevMode),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// close releases resources in dependency order.
func (s *Server) close() {
	s.pipeline.Wait()
	if err := s.cache.Close(); err != nil {
		s.logger.Warn("closing cache", slog.String("error", err.Error()))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
