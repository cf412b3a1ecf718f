// Package routing wires the chat server's handlers and middleware into a
// chi router.
package routing

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/internal/util"
	"github.com/teilomillet/chatline/server/handlers"
	"github.com/teilomillet/chatline/server/metrics"
	"github.com/teilomillet/chatline/server/middleware"
	"github.com/teilomillet/chatline/server/validation"
	"go.uber.org/zap"
)

// HealthCheck reports a dependency problem as an error.
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

var errCheckPanicked = fmt.Errorf("check panicked")

// Handlers are the endpoint implementations mounted by the router.
type Handlers struct {
	Chat    http.Handler
	Text    *handlers.TextHandler
	Storage *handlers.StorageHandler
	Config  http.HandlerFunc
}

// Options configures NewRouter. Metrics, Queue, RateLimiter and Checks are
// optional.
type Options struct {
	Config      *config.Config
	Handlers    Handlers
	Metrics     *metrics.Metrics
	Queue       *middleware.QueueMiddleware
	RateLimiter *middleware.RateLimiter
	Checks      map[string]HealthCheck
	Logger      *zap.Logger
}

// Router routes the chat API.
//
// Only /v1/chat reaches the generation backend, so it alone sits behind the
// credential gate, the rate limiter, the request timeout and the admission
// queue. The text tools, storage and config endpoints are local and cheap.
type Router struct {
	router chi.Router
	checks map[string]HealthCheck
	logger *zap.Logger
}

// NewRouter creates a router with the global middleware stack and every
// route mounted.
func NewRouter(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := &Router{
		router: chi.NewRouter(),
		checks: opts.Checks,
		logger: opts.Logger,
	}

	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RequestTimer)
	r.router.Use(middleware.Logging(opts.Logger))
	r.router.Use(middleware.Recovery(opts.Logger, opts.Metrics))
	r.router.Use(middleware.CORS)
	if opts.Metrics != nil {
		r.router.Use(middleware.PrometheusMetrics(opts.Metrics))
	}

	r.router.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, errors.NewNotFoundError(middleware.GetRequestID(req.Context()), "route not found"))
	})
	r.router.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		errors.ErrorWithType(w, "method not allowed", errors.MethodNotAllowedError, http.StatusMethodNotAllowed)
	})

	r.setupRoutes(opts)
	return r
}

func (r *Router) setupRoutes(opts Options) {
	h := opts.Handlers

	r.router.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(chat chi.Router) {
			chat.Use(middleware.RequireCredentials(opts.Config))
			if opts.RateLimiter != nil {
				chat.Use(opts.RateLimiter.Handler)
			}
			chat.Use(middleware.Timeout(opts.Config.Server.RequestTimeout))
			if opts.Queue != nil {
				chat.Use(opts.Queue.Handler)
			}
			chat.Method(http.MethodPost, "/chat", h.Chat)
		})

		v1.Post("/clean", h.Text.Clean)
		v1.Post("/classify", h.Text.Classify)
		v1.Post("/validate", h.Text.Validate)

		v1.Route("/storage", func(s chi.Router) {
			s.Delete("/", h.Storage.Clear)
			s.Get("/{slot}", h.Storage.Get)
			s.With(validation.RequireJSON).Put("/{slot}", h.Storage.Put)
			s.Delete("/{slot}", h.Storage.Delete)
		})

		v1.Get("/config", h.Config)
	})

	r.router.Get("/health", r.healthCheckHandler)
	if opts.Metrics != nil {
		RegisterMetricsRoutes(r.router, opts.Metrics)
	}
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthCheckHandler runs every check and answers 503 when any fails.
func (r *Router) healthCheckHandler(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		check := r.checks[name]
		err := util.SafeExecute(r.logger, "health check "+name, errCheckPanicked, func() (error, error) {
			return check(ctx), nil
		})
		if err != nil {
			r.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			status.Status = "degraded"
			status.Checks[name] = "unhealthy: " + err.Error()
			continue
		}
		status.Checks[name] = "healthy"
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
