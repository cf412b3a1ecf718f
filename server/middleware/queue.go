package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/eapache/queue/v2"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server/metrics"
)

// ticket is a waiting request. ready is closed when it is granted a slot.
type ticket struct {
	ready     chan struct{}
	abandoned bool
}

// QueueMiddleware admits at most MaxActive requests at a time. Requests
// beyond that wait in FIFO order; once MaxWaiting requests are waiting,
// new ones are turned away with 503.
//
// A waiting request whose context ends gives up its place. A finished
// request hands its slot straight to the oldest live waiter.
type QueueMiddleware struct {
	mu         sync.Mutex
	waiting    *queue.Queue[*ticket]
	live       int // non-abandoned tickets in waiting
	active     int
	maxActive  int
	maxWaiting int
	metrics    *metrics.Metrics
}

// QueueConfig defines the operational parameters for the queue middleware.
type QueueConfig struct {
	MaxActive  int              // concurrent requests allowed past the queue
	MaxWaiting int64            // requests allowed to wait; 0 rejects when busy
	Metrics    *metrics.Metrics // may be nil
}

// NewQueueMiddleware creates a queue. MaxActive below 1 is treated as 1.
func NewQueueMiddleware(cfg QueueConfig) *QueueMiddleware {
	return &QueueMiddleware{
		waiting:    queue.New[*ticket](),
		maxActive:  max(cfg.MaxActive, 1),
		maxWaiting: int(max(cfg.MaxWaiting, 0)),
		metrics:    cfg.Metrics,
	}
}

// GetQueueSize returns the number of requests waiting for a slot.
func (qm *QueueMiddleware) GetQueueSize() int {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	return qm.live
}

// GetProcessing returns the number of admitted requests.
func (qm *QueueMiddleware) GetProcessing() int {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	return qm.active
}

// acquire blocks until the request is admitted. It returns false when the
// queue is full or ctx ends first.
func (qm *QueueMiddleware) acquire(ctx context.Context) (bool, error) {
	qm.mu.Lock()
	if qm.active < qm.maxActive && qm.live == 0 {
		qm.active++
		qm.updateGauges()
		qm.mu.Unlock()
		return true, nil
	}
	if qm.live >= qm.maxWaiting {
		qm.mu.Unlock()
		return false, nil
	}

	t := &ticket{ready: make(chan struct{})}
	qm.waiting.Add(t)
	qm.live++
	qm.updateGauges()
	qm.mu.Unlock()

	select {
	case <-t.ready:
		return true, nil
	case <-ctx.Done():
		qm.mu.Lock()
		defer qm.mu.Unlock()
		select {
		case <-t.ready:
			// Granted while we were giving up; pass the slot on.
			qm.releaseLocked()
		default:
			t.abandoned = true
			qm.live--
			qm.updateGauges()
		}
		return false, ctx.Err()
	}
}

func (qm *QueueMiddleware) release() {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	qm.releaseLocked()
}

// releaseLocked frees a slot, or gives it to the oldest live waiter.
func (qm *QueueMiddleware) releaseLocked() {
	for qm.waiting.Length() > 0 {
		t := qm.waiting.Remove()
		if t.abandoned {
			continue
		}
		qm.live--
		close(t.ready)
		qm.updateGauges()
		return
	}
	qm.active--
	qm.updateGauges()
}

func (qm *QueueMiddleware) updateGauges() {
	if qm.metrics == nil {
		return
	}
	qm.metrics.ActiveRequests.WithLabelValues("queued").Set(float64(qm.live))
	qm.metrics.ActiveRequests.WithLabelValues("processing").Set(float64(qm.active))
}

// Shutdown waits for admitted and waiting requests to finish.
func (qm *QueueMiddleware) Shutdown(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		qm.mu.Lock()
		idle := qm.active == 0 && qm.live == 0
		qm.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			if qm.metrics != nil {
				qm.metrics.ErrorsTotal.WithLabelValues("queue_shutdown_timeout").Inc()
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Handler routes requests through the queue.
func (qm *QueueMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := GetRequestID(r.Context())

		ok, err := qm.acquire(r.Context())
		if !ok {
			if err != nil {
				// Client went away while waiting; nobody reads the reply.
				errors.WriteError(w, errors.NewError(errors.TimeoutError,
					"Request cancelled while queued", errors.StatusFor(errors.TimeoutError),
					requestID, nil, err))
				return
			}
			if qm.metrics != nil {
				qm.metrics.ErrorsTotal.WithLabelValues("queue_full").Inc()
			}
			errors.WriteError(w, errors.NewError(errors.QueueFullError,
				"Too many requests waiting, try again later", http.StatusServiceUnavailable,
				requestID, map[string]interface{}{"max_waiting": qm.maxWaiting}, nil))
			return
		}
		defer qm.release()

		if qm.metrics != nil {
			qm.metrics.RequestDuration.WithLabelValues("queue_wait").Observe(time.Since(start).Seconds())
		}

		next.ServeHTTP(w, r)
	})
}
