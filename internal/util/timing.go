package util

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Debounce returns a function that runs fn once calls have stopped for
// delay. Calls made in the meantime restart the wait.
func Debounce(fn func(), delay time.Duration) func() {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, fn)
	}
}

// Throttle returns a function that runs fn at most once per delay and drops
// calls in between. It reports whether fn ran.
func Throttle(fn func(), delay time.Duration) func() bool {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func() bool {
		mu.Lock()
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < delay {
			mu.Unlock()
			return false
		}
		last = now
		mu.Unlock()

		fn()
		return true
	}
}

// Measure runs fn and, when enabled, logs how long it took.
func Measure(logger *zap.Logger, enabled bool, name string, fn func()) {
	if !enabled {
		fn()
		return
	}
	start := time.Now()
	fn()
	logger.Info("Performance measurement",
		zap.String("name", name),
		zap.Duration("duration", time.Since(start)),
	)
}

// SafeExecute runs fn and returns fallback if it fails or panics. Failures
// are logged with where as context.
func SafeExecute[T any](logger *zap.Logger, where string, fallback T, fn func() (T, error)) (result T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic",
				zap.String("context", where),
				zap.String("panic", fmt.Sprint(r)),
				zap.Stack("stacktrace"),
			)
			result = fallback
		}
	}()

	v, err := fn()
	if err != nil {
		logger.Error("Execution failed",
			zap.String("context", where),
			zap.Error(err),
		)
		return fallback
	}
	return v
}
