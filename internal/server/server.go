// Package server exposes the formula engine as an HTTP JSON API.
//
// Each client is identified by a cookie session and keeps its own variable
// environment between requests, seeded from the configured variables.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapcalc/internal/dag"
	"github.com/leapstack-labs/leapcalc/internal/state"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"golang.org/x/sync/errgroup"
)

const (
	sessionName  = "leapcalc"
	clientIDKey  = "client_id"
	clientTTL    = 24 * time.Hour
	sweepEvery   = 10 * time.Minute
	maxBodyBytes = 1 << 20
)

// Server is the HTTP API server.
type Server struct {
	port         int
	store        state.Store
	sessionStore *sessions.CookieStore
	clients      *clientRegistry
	graph        *dag.Graph
	notifier     *Notifier
	logger       *slog.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Port          int
	SessionSecret string // random per process when empty
	Secure        bool   // send the session cookie over HTTPS only
	Options       []formula.Option
	Prelude       func(env *formula.Environment) error
	Variables     map[string]string // configured bindings behind Prelude
	Store         state.Store // optional history store
	Logger        *slog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore(sessionKey(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	// Browsers and cookie jars drop Secure cookies on plain HTTP.
	sessionStore.Options.Secure = cfg.Secure

	opts := append([]formula.Option{formula.WithLogger(logger)}, cfg.Options...)
	newEnv := func() (*formula.Environment, error) {
		env := formula.NewEnvironment(opts...)
		if cfg.Prelude != nil {
			if err := cfg.Prelude(env); err != nil {
				return nil, err
			}
		}
		return env, nil
	}

	return &Server{
		port:         cfg.Port,
		store:        cfg.Store,
		sessionStore: sessionStore,
		clients:      newClientRegistry(newEnv),
		graph:        dag.FromBindings(cfg.Variables),
		notifier:     NewNotifier(),
		logger:       logger,
	}
}

func sessionKey(secret string) []byte {
	if secret != "" {
		return []byte(secret)
	}
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return key
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	s.routes(r)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: middleware.Logger(s.Handler()),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Drop idle client environments
	eg.Go(func() error {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-egctx.Done():
				return nil
			case <-ticker.C:
				if n := s.clients.sweep(clientTTL); n > 0 {
					s.logger.Debug("dropped idle clients", "count", n)
				}
			}
		}
	})

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's evaluation event notifier.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}
