package ethereum

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mevbacktest/backtester/internal/circuitbreaker"
	"github.com/mevbacktest/backtester/internal/logger"
	"github.com/mevbacktest/backtester/internal/ratelimit"
)

func testFetcher(cfg FetcherConfig) *Fetcher {
	log := logger.New(discardWriter{}, logger.LevelError, "fetcher-test", nil)
	return &Fetcher{
		cfg:     cfg,
		logger:  log,
		permits: make(chan struct{}, cfg.Concurrency),
		limiter: ratelimit.NewWithBurst(1000, cfg.Concurrency),
		cb:      circuitbreaker.New[any](circuitbreaker.DefaultConfig("test-fetcher")),
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestFetcher_CallWithRetry_succeeds_on_third_attempt_with_backoff(t *testing.T) {
	f := testFetcher(FetcherConfig{Concurrency: 10, MaxRetries: 3, InitialBackoff: 100 * time.Millisecond, CallTimeout: time.Second})
	// A fake leaf call runs through callOnce's real rate limiter, permit and
	// circuit breaker, mirroring the scenario where a block fetch fails
	// transiently twice before succeeding.
	attempts := 0
	fn := func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("read tcp: i/o timeout")
		}
		return "ok", nil
	}

	start := time.Now()
	result, err := f.callWithRetry(context.Background(), "eth_getBlockByNumber(n)", fn)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("expected eventual success, got error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected result %q, got %v", "ok", result)
	}
	if attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", attempts)
	}
	if elapsed < 300*time.Millisecond {
		t.Fatalf("expected retry delay >= 300ms (100ms + 200ms backoff), got %v", elapsed)
	}
}

func TestFetcher_CallWithRetry_stops_immediately_on_fatal_error(t *testing.T) {
	f := testFetcher(FetcherConfig{Concurrency: 10, MaxRetries: 3, InitialBackoff: 100 * time.Millisecond, CallTimeout: time.Second})
	attempts := 0
	fn := func(ctx context.Context) (any, error) {
		attempts++
		return nil, errors.New("execution reverted: insufficient balance")
	}

	_, err := f.callWithRetry(context.Background(), "eth_call", fn)
	if err == nil {
		t.Fatal("expected the fatal error to propagate")
	}
	if attempts != 1 {
		t.Fatalf("expected no retries for a non-transient error, got %d attempts", attempts)
	}
}

func TestFetcher_CallWithRetry_exhausts_budget_on_persistent_transient_error(t *testing.T) {
	f := testFetcher(FetcherConfig{Concurrency: 10, MaxRetries: 2, InitialBackoff: 10 * time.Millisecond, CallTimeout: time.Second})
	attempts := 0
	fn := func(ctx context.Context) (any, error) {
		attempts++
		return nil, errors.New("connection reset by peer")
	}

	_, err := f.callWithRetry(context.Background(), "eth_getBlockReceipts(n)", fn)
	if err == nil {
		t.Fatal("expected the retry budget to be exhausted")
	}
	if attempts != 3 {
		t.Fatalf("expected MaxRetries+1 = 3 attempts, got %d", attempts)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline_exceeded_is_transient", context.DeadlineExceeded, true},
		{"io_timeout_is_transient", errors.New("dial tcp: i/o timeout"), true},
		{"connection_reset_is_transient", errors.New("read: connection reset by peer"), true},
		{"rate_limited_is_transient", errors.New("429 Too Many Requests"), true},
		{"bad_gateway_is_transient", errors.New("502 Bad Gateway"), true},
		{"execution_reverted_is_fatal", errors.New("execution reverted: out of gas"), false},
		{"block_not_found_is_fatal", errors.New("block 5000015 not found"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
