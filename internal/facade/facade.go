// Package facade fronts a secret store with a bounded read cache. All HTTP
// traffic flows through it: writes go through to the backend and refresh the
// cache, reads are served from cache when possible, and listings always hit
// the backend so they stay fresh.
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/pkg/store"
)

const (
	// defaultCacheCapacity bounds the read cache when no capacity is
	// configured.
	defaultCacheCapacity = 128

	// maxNameLength is the longest secret name accepted on writes.
	maxNameLength = 127
)

// Metrics receives cache activity and backend operation timings. The server
// wires a Prometheus-backed implementation; tests use counters.
type Metrics interface {
	CacheHit()
	CacheMiss()
	CacheEviction()
	CacheEntries(count int)
	StoreOperation(storeName, op, status string, seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) CacheHit()                                      {}
func (noopMetrics) CacheMiss()                                     {}
func (noopMetrics) CacheEviction()                                 {}
func (noopMetrics) CacheEntries(int)                               {}
func (noopMetrics) StoreOperation(string, string, string, float64) {}

// Facade owns a backend store and its read cache.
type Facade struct {
	backend store.Store
	cache   *lruCache
	logger  *logging.Logger
	metrics Metrics
}

// Option configures a Facade
type Option func(*Facade)

// WithCacheCapacity bounds the read cache. Non-positive values keep the
// default of 128.
func WithCacheCapacity(capacity int) Option {
	return func(f *Facade) {
		if capacity > 0 {
			f.cache = newLRUCache(capacity)
		}
	}
}

// WithMetrics wires an operations recorder.
func WithMetrics(m Metrics) Option {
	return func(f *Facade) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithLogger sets a custom logger (for testing)
func WithLogger(logger *logging.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

// New creates a facade over backend.
func New(backend store.Store, opts ...Option) *Facade {
	f := &Facade{
		backend: backend,
		cache:   newLRUCache(defaultCacheCapacity),
		logger:  logging.New(false, false),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StoreName returns the configured name of the underlying backend.
func (f *Facade) StoreName() string {
	return f.backend.Name()
}

// Set writes a secret through to the backend and refreshes the cache entry
// so the next read sees the new value without a backend round trip.
func (f *Facade) Set(ctx context.Context, name, value string) (store.SecretValue, error) {
	if err := validateName(name); err != nil {
		return store.SecretValue{}, err
	}

	sv, err := f.observe(ctx, "set", func(ctx context.Context) (store.SecretValue, error) {
		return f.backend.Set(ctx, name, value)
	})
	if err != nil {
		return store.SecretValue{}, err
	}

	evicted, size := f.cache.put(name, sv)
	if evicted {
		f.metrics.CacheEviction()
	}
	f.metrics.CacheEntries(size)
	f.logger.Debug("set %s (version %s)", logging.Secret(name), sv.Version)
	return sv, nil
}

// Get returns a secret, serving from cache when the name was read or
// written before.
func (f *Facade) Get(ctx context.Context, name string) (store.SecretValue, error) {
	if sv, ok := f.cache.get(name); ok {
		f.metrics.CacheHit()
		f.logger.Debug("cache hit for %s", logging.Secret(name))
		return sv, nil
	}
	f.metrics.CacheMiss()

	sv, err := f.observe(ctx, "get", func(ctx context.Context) (store.SecretValue, error) {
		return f.backend.Get(ctx, name)
	})
	if err != nil {
		return store.SecretValue{}, err
	}

	evicted, size := f.cache.put(name, sv)
	if evicted {
		f.metrics.CacheEviction()
	}
	f.metrics.CacheEntries(size)
	return sv, nil
}

// List enumerates all secret names from the backend. Listings never come
// from cache.
func (f *Facade) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := f.backend.List(ctx)
	f.metrics.StoreOperation(f.backend.Name(), "list", statusLabel(err), time.Since(start).Seconds())
	return names, err
}

// Delete removes a secret from the backend and drops its cache entry.
func (f *Facade) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := f.backend.Delete(ctx, name)
	f.metrics.StoreOperation(f.backend.Name(), "delete", statusLabel(err), time.Since(start).Seconds())
	if err != nil {
		return err
	}

	_, size := f.cache.remove(name)
	f.metrics.CacheEntries(size)
	f.logger.Debug("deleted %s", logging.Secret(name))
	return nil
}

// Validate probes the backend. The doctor command and the readiness
// endpoint both call it.
func (f *Facade) Validate(ctx context.Context) error {
	start := time.Now()
	err := f.backend.Validate(ctx)
	f.metrics.StoreOperation(f.backend.Name(), "validate", statusLabel(err), time.Since(start).Seconds())
	return err
}

// CacheLen returns the current number of cached entries.
func (f *Facade) CacheLen() int {
	return f.cache.len()
}

func (f *Facade) observe(ctx context.Context, op string, fn func(context.Context) (store.SecretValue, error)) (store.SecretValue, error) {
	start := time.Now()
	sv, err := fn(ctx)
	f.metrics.StoreOperation(f.backend.Name(), op, statusLabel(err), time.Since(start).Seconds())
	return sv, err
}

func validateName(name string) error {
	if name == "" {
		return store.InvalidNameError{Name: name, Reason: "name cannot be empty"}
	}
	if len(name) > maxNameLength {
		return store.InvalidNameError{Name: name, Reason: fmt.Sprintf("name exceeds %d characters", maxNameLength)}
	}
	return nil
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case store.IsNotFound(err):
		return "not_found"
	case store.IsAccessDenied(err):
		return "access_denied"
	case store.IsInvalidName(err):
		return "invalid"
	case store.IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}
