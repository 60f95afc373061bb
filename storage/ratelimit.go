package storage

import (
	"context"

	"golang.org/x/time/rate"
)

// WithRateLimit wraps a store with a client-side token bucket, limiting the
// number of backend requests per second across all goroutines sharing the
// store. Useful when many collector workers read from a shared backend.
func WithRateLimit(s Store, rps float64, burst int) Store {
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedStore{inner: s, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

type rateLimitedStore struct {
	inner   Store
	limiter *rate.Limiter
}

func (s *rateLimitedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Get(ctx, key)
}

func (s *rateLimitedStore) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.GetRange(ctx, key, offset, length)
}

func (s *rateLimitedStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Put(ctx, key, value)
}

func (s *rateLimitedStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return ObjectInfo{}, err
	}
	return s.inner.Stat(ctx, key)
}

func (s *rateLimitedStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.List(ctx, prefix)
}
