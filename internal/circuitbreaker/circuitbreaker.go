// Package circuitbreaker wraps sony/gobreaker/v2 with the defaults this
// codebase's RPC and REST adapters (Ethereum JSON-RPC, Binance REST, DEX
// quoter calls) all converge on, so each adapter configures only what
// differs from the default.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker wraps gobreaker.CircuitBreaker[T] under this package's
// naming so call sites depend on this package, not on gobreaker directly.
type CircuitBreaker[T any] struct {
	inner *gobreaker.CircuitBreaker[T]
}

// DefaultConfig returns gobreaker settings tuned for a flaky upstream
// feed: trip after 5 consecutive failures, half-open after 30s, and
// require 3 consecutive successes to fully close again.
func DefaultConfig(name string) gobreaker.Settings {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return settings
}

// New builds a CircuitBreaker[T] from settings.
func New[T any](settings gobreaker.Settings) *CircuitBreaker[T] {
	return &CircuitBreaker[T]{inner: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker, short-circuiting with
// gobreaker.ErrOpenState when the breaker is open.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	return c.inner.Execute(fn)
}

// State reports the breaker's current state (closed, open, half-open).
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.inner.State()
}
