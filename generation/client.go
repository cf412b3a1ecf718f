package generation

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const outcomeSuccess = "success"

// Client wraps a Generator with the request discipline of the chat
// pipeline:
//   - at most MaxConcurrentRequests generations in flight
//   - identical concurrent prompts share one upstream call
//   - a circuit breaker that opens after consecutive upstream failures
//   - up to RetryAttempts attempts with a fixed delay, for retryable
//     failure classes only
//
// Every error returned by Client is a *errors.ChatError.
type Client struct {
	gen      Generator
	attempts int
	delay    time.Duration
	budget   time.Duration
	logger   *zap.Logger

	sem     *semaphore.Weighted
	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
	breaker *gobreaker.CircuitBreaker
	metrics *clientMetrics
}

// NewClient builds a Client from cfg. Metrics are registered with reg,
// which may be nil.
func NewClient(gen Generator, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) *Client {
	c := &Client{
		gen:      gen,
		attempts: max(cfg.API.DeepAI.RetryAttempts, 1),
		delay:    cfg.API.DeepAI.RetryDelay,
		logger:   logger,
		flights:  make(map[string]*flight),
		sem:      semaphore.NewWeighted(int64(max(cfg.Performance.MaxConcurrentRequests, 1))),
		metrics:  newClientMetrics(reg),
	}

	c.budget = time.Duration(c.attempts) * (cfg.API.DeepAI.Timeout + c.delay)

	cb := cfg.CircuitBreaker
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: cb.MaxRequests,
		Interval:    cb.Interval,
		Timeout:     cb.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cb.FailureThreshold
		},
		// Client-side failures say nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Retryable(errors.Classify(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.metrics.breakerState.Set(float64(to))
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// flight is the context of one shared upstream call. It outlives any single
// caller and is cancelled once the last waiter has left or its budget runs
// out.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Generate returns the upstream text for prompt. Each caller waits on its
// own ctx: leaving early neither cancels the shared call for the others nor
// keeps the caller blocked past its deadline.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	f := c.join(ctx, prompt)
	defer c.leave(prompt, f)

	ch := c.group.DoChan(prompt, func() (interface{}, error) {
		return c.generate(f.ctx, prompt)
	})

	select {
	case <-ctx.Done():
		return "", errors.Wrap("", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) join(ctx context.Context, prompt string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[prompt]
	if ok {
		c.metrics.deduplicated.Inc()
	} else {
		f = &flight{}
		f.ctx, f.cancel = context.WithTimeout(context.WithoutCancel(ctx), c.budget)
		c.flights[prompt] = f
	}
	f.waiters++
	return f
}

func (c *Client) leave(prompt string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[prompt] == f {
		delete(c.flights, prompt)
		c.group.Forget(prompt)
	}
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.metrics.results.WithLabelValues(string(errors.Classify(err))).Inc()
		return "", errors.Wrap("", err)
	}
	defer c.sem.Release(1)

	c.metrics.inFlight.Inc()
	defer c.metrics.inFlight.Dec()

	out, err := c.generateWithRetries(ctx, prompt)
	if err != nil {
		c.metrics.results.WithLabelValues(string(err.Type)).Inc()
		return "", err
	}
	c.metrics.results.WithLabelValues(outcomeSuccess).Inc()
	return out, nil
}

func (c *Client) generateWithRetries(ctx context.Context, prompt string) (string, *errors.ChatError) {
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		out, err := c.attempt(ctx, prompt)
		if err == nil {
			return out, nil
		}

		errType := errors.Classify(err)
		c.metrics.attempts.WithLabelValues(string(errType)).Inc()
		lastErr = err

		c.logger.Warn("Generation attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.attempts),
			zap.String("error_type", string(errType)),
			zap.Error(err),
		)

		if !errors.Retryable(errType) || attempt == c.attempts {
			break
		}
		if c.breaker.State() == gobreaker.StateOpen {
			break
		}

		select {
		case <-ctx.Done():
			return "", errors.Wrap("", ctx.Err())
		case <-time.After(c.delay):
		}
	}

	return "", errors.Wrap("", lastErr)
}

func (c *Client) attempt(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	v, err := c.breaker.Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return c.gen.Generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", errors.NewUpstreamError(errors.ServerError, "", "upstream unavailable", err)
		}
		return "", err
	}

	c.metrics.attempts.WithLabelValues(outcomeSuccess).Inc()
	c.metrics.latency.Observe(time.Since(start).Seconds())
	return v.(string), nil
}
