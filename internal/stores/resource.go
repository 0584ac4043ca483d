package stores

import (
	"context"
	"sync"
)

// Resource caches the result of a fetch function.
type Resource[T any] struct {
	fetch func(ctx context.Context) (T, error)

	mu      sync.RWMutex
	data    T
	err     error
	loading bool
	loaded  bool
}

// NewResource creates a [Resource] that loads its data with fetch.
func NewResource[T any](fetch func(ctx context.Context) (T, error)) *Resource[T] {
	return &Resource[T]{fetch: fetch}
}

// Fetch reloads the data. On failure the previous data is kept and Err reports the failure.
func (r *Resource[T]) Fetch(ctx context.Context) (T, error) {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	data, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	r.err = err
	if err != nil {
		return r.data, err
	}
	r.data = data
	r.loaded = true
	return data, nil
}

func (r *Resource[T]) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

func (r *Resource[T]) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Data returns the last successfully fetched value and whether any fetch has succeeded.
func (r *Resource[T]) Data() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data, r.loaded
}

// Set replaces the cached value, used after a local mutation the server already confirmed.
func (r *Resource[T]) Set(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = v
	r.loaded = true
	r.err = nil
}
