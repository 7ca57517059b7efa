// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
	"github.com/rolelink-dev/rolelink/pkg/health"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr string
	// BaseURL is the public URL of the service; OAuth redirects go to
	// BaseURL + "/callback".
	BaseURL      string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// APIToken protects /api/v1 routes when non-empty.
	APIToken string
	// OAuthRateLimit applies per-IP limits to /connect and /callback.
	OAuthRateLimit RateLimitConfig
	// SyncHealth, when set, adds write health to /health.
	SyncHealth health.Reporter
	Version    string
}

// Server wraps a chi router with huma API and HTTP server.
type Server struct {
	router   chi.Router
	api      huma.API
	cfg      Config
	services *Services

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Server with chi router, huma API, health endpoint, and CORS.
func New(cfg Config) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, rlerr.New(rlerr.CodeServerConfigInvalid, "listen address is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, rlerr.Errorf(rlerr.CodeServerConfigInvalid, "base url %q is not an absolute url", cfg.BaseURL)
	}
	if err := cfg.OAuthRateLimit.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(authMiddleware(cfg.APIToken))

	// Huma API with OpenAPI spec
	humaConfig := huma.DefaultConfig("Rolelink", cfg.Version)
	humaConfig.Info.Description = "Discord linked roles metadata sync"
	api := humachi.New(r, humaConfig)

	// Health endpoint
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return healthResponse(cfg.SyncHealth), nil
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Linked roles app is running."))
	})

	return &Server{
		router: r,
		api:    api,
		cfg:    cfg,
		done:   make(chan struct{}),
	}, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API for registering additional operations.
func (s *Server) API() huma.API {
	return s.api
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return rlerr.Errorf(rlerr.CodeServerStartFailure, "listening on %s: %w", s.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return rlerr.Errorf(rlerr.CodeServerStartFailure, "serving http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return rlerr.Errorf(rlerr.CodeServerShutdownFailure, "shutting down: %w", err)
	}

	if err, ok := <-errCh; ok {
		return rlerr.Errorf(rlerr.CodeServerStartFailure, "serving http: %w", err)
	}
	return nil
}

// Close stops background goroutines. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status string          `json:"status" example:"ok" enum:"ok,degraded" doc:"Health status"`
	Sync   *health.Metrics `json:"sync,omitempty" doc:"Role-connection write health"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

func healthResponse(r health.Reporter) *HealthResponse {
	resp := &HealthResponse{Body: HealthBody{Status: "ok"}}
	if r == nil {
		return resp
	}
	m := r.HealthMetrics()
	resp.Body.Sync = &m
	if !m.Available {
		resp.Body.Status = "degraded"
	}
	return resp
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
