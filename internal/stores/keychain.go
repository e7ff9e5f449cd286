package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"

	vderrors "github.com/systmms/vaultdoor/internal/errors"
	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/pkg/store"
)

// defaultKeychainService is the keychain service name used when no prefix is
// configured
const defaultKeychainService = "vaultdoor"

// keychainIndexAccount is the reserved account that holds the JSON list of
// secret names. The keychain API has no enumeration, so List reads this
// entry instead.
const keychainIndexAccount = "__index__"

// KeyringClientAPI defines the interface for OS keyring operations
// This allows for mocking in tests
type KeyringClientAPI interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

// systemKeyring calls the platform secret service (macOS Keychain, Linux
// Secret Service, Windows Credential Manager) through zalando/go-keyring
type systemKeyring struct{}

func (systemKeyring) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}

func (systemKeyring) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}

func (systemKeyring) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// KeychainStore implements the Store interface for the OS keychain. Secrets
// are stored as keychain items keyed by (service, name), with the service
// taken from the configured prefix.
type KeychainStore struct {
	name    string
	service string
	client  KeyringClientAPI
	logger  *logging.Logger

	// mu guards read-modify-write cycles on the index entry
	mu sync.Mutex
}

// KeychainStoreOption is a functional option for configuring the keychain store
type KeychainStoreOption func(*KeychainStore)

// WithKeyringClient sets a custom keyring client (for testing)
func WithKeyringClient(client KeyringClientAPI) KeychainStoreOption {
	return func(s *KeychainStore) {
		s.client = client
	}
}

// NewKeychainStore creates a new OS keychain store
func NewKeychainStore(name string, configMap map[string]interface{}, opts ...KeychainStoreOption) (*KeychainStore, error) {
	logger := logging.New(false, false)

	service := defaultKeychainService
	if prefix, ok := configMap["prefix"].(string); ok && prefix != "" {
		service = prefix
	}

	s := &KeychainStore{
		name:    name,
		service: service,
		logger:  logger,
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = systemKeyring{}
	}

	return s, nil
}

// Name returns the store type identifier
func (s *KeychainStore) Name() string {
	return s.name
}

// Set writes a keychain item and records the name in the index entry
func (s *KeychainStore) Set(ctx context.Context, name, value string) (store.SecretValue, error) {
	if name == keychainIndexAccount {
		return store.SecretValue{}, store.InvalidNameError{Name: name, Reason: "reserved for the keychain index"}
	}
	s.logger.Debug("Writing keychain item: %s", logging.Secret(name))

	if err := s.client.Set(s.service, name, value); err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}
	if err := s.addToIndex(name); err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}

	return store.SecretValue{
		Value:     value,
		Version:   "", // Keychain doesn't support versioning
		UpdatedAt: time.Now(),
	}, nil
}

// Get reads a keychain item
func (s *KeychainStore) Get(ctx context.Context, name string) (store.SecretValue, error) {
	if name == keychainIndexAccount {
		return store.SecretValue{}, store.InvalidNameError{Name: name, Reason: "reserved for the keychain index"}
	}
	s.logger.Debug("Reading keychain item: %s", logging.Secret(name))

	value, err := s.client.Get(s.service, name)
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}

	return store.SecretValue{Value: value}, nil
}

// List returns the names recorded in the index entry
func (s *KeychainStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.readIndex()
	if err != nil {
		return nil, s.mapError("", err)
	}
	return names, nil
}

// Delete removes a keychain item and drops the name from the index entry
func (s *KeychainStore) Delete(ctx context.Context, name string) error {
	if name == keychainIndexAccount {
		return store.InvalidNameError{Name: name, Reason: "reserved for the keychain index"}
	}
	s.logger.Debug("Deleting keychain item: %s", logging.Secret(name))

	if err := s.client.Delete(s.service, name); err != nil {
		return s.mapError(name, err)
	}
	if err := s.removeFromIndex(name); err != nil {
		return s.mapError(name, err)
	}
	return nil
}

// Validate checks keychain access by reading the index entry. A missing
// index is healthy; it just means nothing has been written yet.
func (s *KeychainStore) Validate(ctx context.Context) error {
	if _, err := s.client.Get(s.service, keychainIndexAccount); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return vderrors.UserError{
			Message:    "Failed to access the OS keychain",
			Details:    err.Error(),
			Suggestion: getKeychainErrorSuggestion(err),
		}
	}
	return nil
}

// Capabilities returns the store's capabilities
func (s *KeychainStore) Capabilities() store.Capabilities {
	return store.Capabilities{
		SupportsVersioning: false,
		SupportsList:       true,
		SoftDelete:         false,
		RequiresAuth:       false, // Uses OS-level authentication
		AuthMethods:        []string{"os"},
	}
}

// readIndex loads the name list from the index entry. Callers hold s.mu.
func (s *KeychainStore) readIndex() ([]string, error) {
	raw, err := s.client.Get(s.service, keychainIndexAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("corrupt keychain index: %w", err)
	}
	return names, nil
}

// writeIndex stores the name list in the index entry. Callers hold s.mu.
func (s *KeychainStore) writeIndex(names []string) error {
	sort.Strings(names)
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return s.client.Set(s.service, keychainIndexAccount, string(raw))
}

func (s *KeychainStore) addToIndex(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.readIndex()
	if err != nil {
		return err
	}
	for _, existing := range names {
		if existing == name {
			return nil
		}
	}
	return s.writeIndex(append(names, name))
}

func (s *KeychainStore) removeFromIndex(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := names[:0]
	for _, existing := range names {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	return s.writeIndex(kept)
}

// mapError converts keyring failures to the shared store error kinds
func (s *KeychainStore) mapError(name string, err error) error {
	if errors.Is(err, keyring.ErrNotFound) || isKeychainNotFoundError(err) {
		return store.NotFoundError{Store: s.name, Name: name}
	}
	if isKeychainAccessDeniedError(err) {
		return store.AccessDeniedError{
			Store:   s.name,
			Message: fmt.Sprintf("keychain access denied: %v. %s", err, getKeychainErrorSuggestion(err)),
		}
	}
	return store.UnavailableError{Store: s.name, Err: err}
}

// isKeychainNotFoundError checks if the error indicates a missing item
func isKeychainNotFoundError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "itemnotfound")
}

// isKeychainAccessDeniedError checks if the error indicates denied access
func isKeychainAccessDeniedError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "accessdenied") ||
		strings.Contains(errStr, "not authorized")
}

// getKeychainErrorSuggestion provides helpful suggestions based on keychain errors
func getKeychainErrorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "dbus"), strings.Contains(errStr, "org.freedesktop"), strings.Contains(errStr, "secret service"):
		return "Ensure a Secret Service daemon (gnome-keyring or kwallet) is running. Headless and CI environments usually need a different store type"
	case strings.Contains(errStr, "access denied"), strings.Contains(errStr, "not authorized"):
		return "Unlock the keychain and allow this application to access it"
	case strings.Contains(errStr, "unsupported"), strings.Contains(errStr, "not supported"):
		return "The OS keychain is not available on this platform. Use a different store type"
	default:
		return "Check that the OS keychain is unlocked and accessible"
	}
}

// NewKeychainStoreFactory creates an OS keychain store factory
func NewKeychainStoreFactory(name string, config map[string]interface{}) (store.Store, error) {
	return NewKeychainStore(name, config)
}
