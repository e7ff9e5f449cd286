package fakes

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/systmms/vaultdoor/pkg/store"
)

// FakeStore is a manual fake implementation of the store.Store interface.
//
// It keeps secrets in memory, tracks method calls, and can be configured to
// fail on specific names or whole operations. Use it where a test needs to
// observe backend traffic (for example, that a cache hit skips the backend)
// or to force error paths without a real service.
//
// Example usage:
//
//	fake := fakes.NewFakeStore("primary").
//	    WithSecret("db-pass", store.SecretValue{Value: "hunter2"}).
//	    WithError("api-key", store.UnavailableError{Store: "primary"})
type FakeStore struct {
	name         string
	capabilities store.Capabilities

	secrets  map[string]store.SecretValue
	versions map[string]int

	failOn    map[string]error // name -> error for Get/Set/Delete
	failOp    map[string]error // operation -> error, checked first
	callDelay time.Duration

	callCount map[string]int

	mu sync.RWMutex
}

// NewFakeStore creates a FakeStore with the given name and versioning
// capabilities. Configure data and failures with the builder methods.
func NewFakeStore(name string) *FakeStore {
	return &FakeStore{
		name:      name,
		secrets:   make(map[string]store.SecretValue),
		versions:  make(map[string]int),
		failOn:    make(map[string]error),
		failOp:    make(map[string]error),
		callCount: make(map[string]int),
		capabilities: store.Capabilities{
			SupportsVersioning: true,
			SupportsList:       true,
			RequiresAuth:       false,
			AuthMethods:        []string{},
		},
	}
}

// WithSecret seeds a secret. Missing version and timestamp fields get
// defaults so assertions on them stay simple.
func (f *FakeStore) WithSecret(name string, value store.SecretValue) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	if value.Version == "" {
		value.Version = "1"
	}
	if value.UpdatedAt.IsZero() {
		value.UpdatedAt = time.Now()
	}
	f.secrets[name] = value
	if n, err := strconv.Atoi(value.Version); err == nil {
		f.versions[name] = n
	} else {
		f.versions[name] = 1
	}
	return f
}

// WithError makes Get, Set, and Delete fail for one name.
func (f *FakeStore) WithError(name string, err error) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failOn[name] = err
	return f
}

// WithOperationError makes a whole operation ("get", "set", "list",
// "delete", "validate") fail regardless of name.
func (f *FakeStore) WithOperationError(op string, err error) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failOp[op] = err
	return f
}

// WithDelay adds artificial latency to every call, for timeout and
// concurrency tests.
func (f *FakeStore) WithDelay(d time.Duration) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callDelay = d
	return f
}

// WithCapabilities overrides the advertised capabilities.
func (f *FakeStore) WithCapabilities(caps store.Capabilities) *FakeStore {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.capabilities = caps
	return f
}

// CallCount returns how many times a method ("Get", "Set", "List",
// "Delete", "Validate") was called.
func (f *FakeStore) CallCount(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.callCount[method]
}

// Name returns the store's configured name.
func (f *FakeStore) Name() string {
	return f.name
}

// Set stores a value, bumping the per-name version counter.
func (f *FakeStore) Set(ctx context.Context, name, value string) (store.SecretValue, error) {
	f.trackCall("Set")
	if err := f.wait(ctx); err != nil {
		return store.SecretValue{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failOp["set"]; ok {
		return store.SecretValue{}, err
	}
	if err, ok := f.failOn[name]; ok {
		return store.SecretValue{}, err
	}

	f.versions[name]++
	sv := store.SecretValue{
		Value:     value,
		Version:   strconv.Itoa(f.versions[name]),
		UpdatedAt: time.Now(),
	}
	f.secrets[name] = sv
	return sv, nil
}

// Get returns the stored value, or a NotFoundError for unknown names.
func (f *FakeStore) Get(ctx context.Context, name string) (store.SecretValue, error) {
	f.trackCall("Get")
	if err := f.wait(ctx); err != nil {
		return store.SecretValue{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err, ok := f.failOp["get"]; ok {
		return store.SecretValue{}, err
	}
	if err, ok := f.failOn[name]; ok {
		return store.SecretValue{}, err
	}

	sv, ok := f.secrets[name]
	if !ok {
		return store.SecretValue{}, store.NotFoundError{Store: f.name, Name: name}
	}
	return sv, nil
}

// List returns all stored names in sorted order.
func (f *FakeStore) List(ctx context.Context) ([]string, error) {
	f.trackCall("List")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err, ok := f.failOp["list"]; ok {
		return nil, err
	}

	names := make([]string, 0, len(f.secrets))
	for name := range f.secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a secret, returning NotFoundError for unknown names.
func (f *FakeStore) Delete(ctx context.Context, name string) error {
	f.trackCall("Delete")
	if err := f.wait(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failOp["delete"]; ok {
		return err
	}
	if err, ok := f.failOn[name]; ok {
		return err
	}

	if _, ok := f.secrets[name]; !ok {
		return store.NotFoundError{Store: f.name, Name: name}
	}
	delete(f.secrets, name)
	delete(f.versions, name)
	return nil
}

// Validate succeeds unless a "validate" operation error is configured.
func (f *FakeStore) Validate(ctx context.Context) error {
	f.trackCall("Validate")
	if err := f.wait(ctx); err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err, ok := f.failOp["validate"]; ok {
		return err
	}
	return nil
}

// Capabilities returns the configured capability flags.
func (f *FakeStore) Capabilities() store.Capabilities {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.capabilities
}

// Has reports whether a secret is currently stored, bypassing call
// tracking. Use it for post-condition assertions.
func (f *FakeStore) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.secrets[name]
	return ok
}

func (f *FakeStore) trackCall(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount[method]++
}

func (f *FakeStore) wait(ctx context.Context) error {
	f.mu.RLock()
	delay := f.callDelay
	f.mu.RUnlock()

	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
