package stores

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/systmms/vaultdoor/pkg/store"
)

// MemoryStore keeps secrets in an in-process map. It backs demos and tests
// where no remote service is available; nothing survives a restart.
type MemoryStore struct {
	name    string
	mu      sync.RWMutex
	secrets map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	version   int
	updatedAt time.Time
}

// NewMemoryStore creates an in-memory store, optionally seeded from a
// "values" map in the configuration.
func NewMemoryStore(name string, configMap map[string]interface{}) *MemoryStore {
	m := &MemoryStore{
		name:    name,
		secrets: make(map[string]memoryEntry),
	}

	if values, ok := configMap["values"].(map[string]interface{}); ok {
		now := time.Now()
		for k, v := range values {
			if str, ok := v.(string); ok {
				m.secrets[k] = memoryEntry{value: str, version: 1, updatedAt: now}
			}
		}
	}

	return m
}

// Name returns the store type identifier
func (m *MemoryStore) Name() string {
	return m.name
}

// Set stores a value, bumping the version counter for the name
func (m *MemoryStore) Set(ctx context.Context, name, value string) (store.SecretValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.secrets[name]
	entry.value = value
	entry.version++
	entry.updatedAt = time.Now()
	m.secrets[name] = entry

	return store.SecretValue{
		Value:     entry.value,
		Version:   strconv.Itoa(entry.version),
		UpdatedAt: entry.updatedAt,
	}, nil
}

// Get retrieves a stored value
func (m *MemoryStore) Get(ctx context.Context, name string) (store.SecretValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.secrets[name]
	if !exists {
		return store.SecretValue{}, store.NotFoundError{Store: m.name, Name: name}
	}

	return store.SecretValue{
		Value:     entry.value,
		Version:   strconv.Itoa(entry.version),
		UpdatedAt: entry.updatedAt,
	}, nil
}

// List returns all stored names in sorted order
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.secrets))
	for name := range m.secrets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Delete removes a stored value
func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.secrets[name]; !exists {
		return store.NotFoundError{Store: m.name, Name: name}
	}
	delete(m.secrets, name)

	return nil
}

// Validate always succeeds; there is nothing to reach
func (m *MemoryStore) Validate(ctx context.Context) error {
	return nil
}

// Capabilities returns the store's capabilities
func (m *MemoryStore) Capabilities() store.Capabilities {
	return store.Capabilities{
		SupportsVersioning: true,
		SupportsList:       true,
		SoftDelete:         false,
		RequiresAuth:       false,
		AuthMethods:        nil,
	}
}

// NewMemoryStoreFactory creates a memory store factory
func NewMemoryStoreFactory(name string, config map[string]interface{}) (store.Store, error) {
	return NewMemoryStore(name, config), nil
}
