package stores

import (
	"fmt"
	"sort"

	"github.com/systmms/vaultdoor/internal/config"
	"github.com/systmms/vaultdoor/pkg/store"
)

// Registry manages store creation and registration
type Registry struct {
	factories map[string]StoreFactory
}

// StoreFactory creates a store instance from configuration
type StoreFactory func(name string, config map[string]interface{}) (store.Store, error)

// NewRegistry creates a new store registry with built-in store types
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]StoreFactory),
	}

	// Register built-in store types
	registry.RegisterFactory("memory", NewMemoryStoreFactory)
	registry.RegisterFactory("azure.keyvault", NewKeyVaultStoreFactory)
	registry.RegisterFactory("azure", NewKeyVaultStoreFactory)
	registry.RegisterFactory("aws.secretsmanager", NewSecretsManagerStoreFactory)
	registry.RegisterFactory("aws.ssm", NewSSMStoreFactory)
	registry.RegisterFactory("gcp.secretmanager", NewGCPStoreFactory)
	registry.RegisterFactory("gcp", NewGCPStoreFactory)
	registry.RegisterFactory("sql", NewSQLStoreFactory)
	registry.RegisterFactory("keychain", NewKeychainStoreFactory)

	return registry
}

// RegisterFactory registers a store factory for a given type
func (r *Registry) RegisterFactory(storeType string, factory StoreFactory) {
	r.factories[storeType] = factory
}

// CreateStore creates a store instance from configuration
func (r *Registry) CreateStore(name string, cfg config.StoreConfig) (store.Store, error) {
	factory, exists := r.factories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unknown store type: %s (supported: %v)", cfg.Type, r.GetSupportedTypes())
	}

	return factory(name, cfg.Settings)
}

// GetSupportedTypes returns a sorted list of supported store types
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for storeType := range r.factories {
		types = append(types, storeType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a store type is supported
func (r *Registry) IsSupported(storeType string) bool {
	_, exists := r.factories[storeType]
	return exists
}
