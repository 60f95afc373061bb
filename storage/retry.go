package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/datamesa/cubestats/metrics"
)

// RetryConfig holds retry configuration for a retrying store decorator.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

// WithRetry wraps a store with bounded exponential-backoff retries for
// transient backend failures. The stats core itself never retries; callers
// who want retry semantics layer this decorator in front of the store they
// hand to the collector.
func WithRetry(s Store, cfg RetryConfig) Store {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	return &retryStore{inner: s, cfg: cfg}
}

type retryStore struct {
	inner Store
	cfg   RetryConfig
}

func (s *retryStore) do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.StorageRetriesTotal.WithLabelValues(op).Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(s.cfg.BaseBackoff, s.cfg.MaxBackoff, attempt-1)):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}

func (s *retryStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.do(ctx, "get", func() error {
		var err error
		value, err = s.inner.Get(ctx, key)
		return err
	})
	return value, err
}

func (s *retryStore) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	var value []byte
	err := s.do(ctx, "get_range", func() error {
		var err error
		value, err = s.inner.GetRange(ctx, key, offset, length)
		return err
	})
	return value, err
}

func (s *retryStore) Put(ctx context.Context, key string, value []byte) error {
	return s.do(ctx, "put", func() error {
		return s.inner.Put(ctx, key, value)
	})
}

func (s *retryStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	var info ObjectInfo
	err := s.do(ctx, "stat", func() error {
		var err error
		info, err = s.inner.Stat(ctx, key)
		return err
	})
	return info, err
}

func (s *retryStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.do(ctx, "list", func() error {
		var err error
		keys, err = s.inner.List(ctx, prefix)
		return err
	})
	return keys, err
}

// retryable reports whether an object store error is worth retrying. Missing
// objects and cancelled contexts never are.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection reset",
		"connection refused",
		"connection closed",
		"broken pipe",
		"eof",
		"timeout",
		"temporary failure",
		"service unavailable",
		"slow down",
		"too many requests",
		"internal error",
	}
	for _, pattern := range patterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d <= 0 || d > max {
		// d <= 0 means the shift overflowed.
		d = max
	}
	// Full jitter, so concurrent workers don't hammer the backend in lockstep.
	return time.Duration(rand.Int64N(int64(d)) + 1)
}
