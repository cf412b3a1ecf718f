package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/internal/util"
	"github.com/teilomillet/chatline/server/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// visitorIdle is how long a client may go unseen before its limiter is
// dropped. A bucket left alone this long has refilled, so forgetting it
// changes nothing.
const visitorIdle = time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows each client IP a fixed number of requests per minute,
// refilled evenly over the minute.
type RateLimiter struct {
	perMinute int
	metrics   *metrics.Metrics
	logger    *zap.Logger
	mayWarn   func() bool
	now       func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per client.
// Rejections are logged at most once per warnEvery; RateLimitHits counts
// every one. m and logger may be nil.
func NewRateLimiter(perMinute int, warnEvery time.Duration, m *metrics.Metrics, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		perMinute: max(perMinute, 1),
		metrics:   m,
		logger:    logger,
		mayWarn:   util.Throttle(func() {}, warnEvery),
		now:       time.Now,
		visitors:  make(map[string]*visitor),
	}
}

func (l *RateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= visitorIdle {
		for addr, v := range l.visitors {
			if now.Sub(v.lastSeen) >= visitorIdle {
				delete(l.visitors, addr)
			}
		}
		l.lastSweep = now
	}

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
		}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Clients reports how many clients are currently tracked.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Reset forgets every client.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visitors = make(map[string]*visitor)
}

// Handler rejects requests over the limit with 429.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !l.limiterFor(ip).Allow() {
			if l.metrics != nil {
				l.metrics.RateLimitHits.WithLabelValues(r.URL.Path).Inc()
			}
			if l.mayWarn() {
				l.logger.Warn("Rate limit exceeded",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("client", ip),
					zap.Int("per_minute", l.perMinute),
				)
			}

			retryAfter := int((time.Minute / time.Duration(l.perMinute)).Seconds())
			retryAfter = max(retryAfter, 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			errResp := errors.NewRateLimitError(GetRequestID(r.Context()), retryAfter)
			errResp.Details["limit"] = int64(l.perMinute)
			errResp.Details["window"] = time.Minute.String()

			errors.WriteError(w, errResp)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
