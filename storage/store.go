// Package storage defines the key-addressable object store consumed by the
// stats pipeline, together with a handful of backends and opt-in decorators.
// All read paths are safe for concurrent use; the stats core never writes.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object without touching its payload.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Store is a flat key-value blob store. Keys are opaque strings; prefixes use
// "/" as a path separator by convention only.
type Store interface {
	// Get reads a whole object.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetRange reads length bytes starting at offset. A negative length reads
	// to the end of the object; a zero length reads nothing.
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)

	// Put writes an object, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Stat returns object metadata without reading the payload.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// List returns all keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Provider resolves a Store for one collector invocation. Distributed workers
// pass a factory so each worker opens its own backend connection locally
// instead of shipping a live handle across process boundaries.
type Provider interface {
	Store(ctx context.Context) (Store, error)
}

// Factory adapts a deferred constructor into a Provider.
type Factory func(ctx context.Context) (Store, error)

func (f Factory) Store(ctx context.Context) (Store, error) {
	return f(ctx)
}

// Fixed adapts an already-open store into a Provider.
func Fixed(s Store) Provider {
	return fixedProvider{s: s}
}

type fixedProvider struct {
	s Store
}

func (p fixedProvider) Store(ctx context.Context) (Store, error) {
	if p.s == nil {
		return nil, errors.New("no store configured")
	}
	return p.s, nil
}
