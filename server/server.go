// Package server assembles the chat HTTP server: generation client, chat
// pipeline, storage, middleware and routes, rebuilt whenever the
// configuration file changes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/sony/gobreaker"
	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/generation"
	"github.com/teilomillet/chatline/server/handlers"
	"github.com/teilomillet/chatline/server/metrics"
	"github.com/teilomillet/chatline/server/middleware"
	"github.com/teilomillet/chatline/server/processing"
	"github.com/teilomillet/chatline/server/routing"
	"github.com/teilomillet/chatline/storage"
	"github.com/teilomillet/chatline/textutil"
	"go.uber.org/zap"
)

// Dependencies are the long-lived collaborators of a Server. They survive
// configuration reloads.
type Dependencies struct {
	Watcher config.Watcher
	Store   storage.Store
	Logger  *zap.Logger

	// Generator overrides the backend chosen from configuration
	Generator generation.Generator
}

// stack is everything built from one configuration snapshot.
type stack struct {
	cfg     *config.Config
	handler http.Handler
	queue   *middleware.QueueMiddleware
	client  *generation.Client
	metrics *metrics.Metrics
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	logger     *zap.Logger
	current    atomic.Pointer[stack]
}

// NewServerWithConfig builds a server from the watcher's current snapshot.
func NewServerWithConfig(deps Dependencies) (*Server, error) {
	if deps.Watcher == nil {
		return nil, fmt.Errorf("config watcher is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{deps: deps, logger: deps.Logger}

	cfg := deps.Watcher.GetCurrentConfig()
	st, err := s.build(cfg)
	if err != nil {
		return nil, err
	}
	s.current.Store(st)

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        s,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return s, nil
}

// build wires a full handler stack for cfg.
func (s *Server) build(cfg *config.Config) (*stack, error) {
	logger := s.logger
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	gen := s.deps.Generator
	if gen == nil {
		var err error
		gen, err = generation.New(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	m := metrics.NewMetrics()
	client := generation.NewClient(gen, cfg, logger, m.Registry())
	slots := storage.NewSlots(s.deps.Store, cfg.Storage, logger)

	opts := []processing.Option{processing.WithHistory(slots)}
	if enc := cfg.Processing.TokenEncoding; enc != "" {
		tokenizer, err := textutil.NewTokenizer(enc)
		if err != nil {
			logger.Warn("Token estimates disabled", zap.String("encoding", enc), zap.Error(err))
		} else {
			opts = append(opts, processing.WithTokenizer(tokenizer))
		}
	}

	proc, err := processing.NewProcessor(cfg, client, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	var queue *middleware.QueueMiddleware
	if cfg.Queue.Enabled {
		queue = middleware.NewQueueMiddleware(middleware.QueueConfig{
			MaxActive:  cfg.Performance.MaxConcurrentRequests,
			MaxWaiting: cfg.Queue.MaxWaiting,
			Metrics:    m,
		})
	}

	store := s.deps.Store
	settingsKey := storage.KeyFor(storage.SlotSettings, cfg.Storage)

	router := routing.NewRouter(routing.Options{
		Config: cfg,
		Handlers: routing.Handlers{
			Chat:    handlers.NewChatHandler(proc, m, logger),
			Text:    handlers.NewTextHandler(textutil.NewCleaner(), proc.Classifier(), proc.Validator()),
			Storage: handlers.NewStorageHandler(slots),
			Config:  handlers.Config(s.deps.Watcher.GetCurrentConfig),
		},
		Metrics:     m,
		Queue:       queue,
		RateLimiter: middleware.NewRateLimiter(cfg.Security.MaxRequestsPerMinute, cfg.Performance.ThrottleDelay, m, logger),
		Checks: map[string]routing.HealthCheck{
			"generation": func(context.Context) error {
				if client.BreakerState() == gobreaker.StateOpen {
					return fmt.Errorf("circuit breaker open")
				}
				return nil
			},
			"storage": func(ctx context.Context) error {
				_, _, err := store.Get(ctx, settingsKey)
				return err
			},
		},
		Logger: logger,
	})

	return &stack{
		cfg:     cfg,
		handler: router,
		queue:   queue,
		client:  client,
		metrics: m,
	}, nil
}

// ServeHTTP dispatches to the stack of the latest configuration.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.current.Load().handler.ServeHTTP(w, r)
}

// Metrics returns the metrics of the active stack.
func (s *Server) Metrics() *metrics.Metrics {
	return s.current.Load().metrics
}

// reload swaps in a stack built from cfg. Requests already in flight finish
// on the old one. A snapshot that fails to build leaves the old stack in
// place.
func (s *Server) reload(cfg *config.Config) {
	old := s.current.Load()
	if cfg == nil || cfg == old.cfg {
		return
	}

	st, err := s.build(cfg)
	if err != nil {
		s.logger.Error("Failed to apply new configuration", zap.Error(err))
		return
	}
	s.current.Store(st)

	if cfg.Server != old.cfg.Server {
		s.logger.Warn("Server settings changed; restart to apply them",
			zap.Int("port", cfg.Server.Port),
		)
	}
	s.logger.Info("Configuration reloaded",
		zap.String("provider", cfg.API.Provider),
		zap.Bool("mock_api", cfg.Dev.MockAPI),
	)
}

// Start starts the server and blocks until ctx ends and the server has shut
// down, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	updates := s.deps.Watcher.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				s.reload(cfg)
			}
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownTimeout := s.current.Load().cfg.Server.ShutdownTimeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		if q := s.current.Load().queue; q != nil {
			if err := q.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("error draining request queue: %w", err)
			}
		}
		return nil

	case err := <-errChan:
		return err
	}
}
