package stores_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/vaultdoor/internal/stores"
	"github.com/systmms/vaultdoor/pkg/store"
	"github.com/systmms/vaultdoor/tests/fakes"
	"github.com/zalando/go-keyring"
)

func newTestKeychainStore(t *testing.T, fake *fakes.FakeKeyringClient) *stores.KeychainStore {
	t.Helper()

	s, err := stores.NewKeychainStore("keychain",
		map[string]interface{}{},
		stores.WithKeyringClient(fake))
	require.NoError(t, err)
	return s
}

// Tests below call keyring.MockInit, which swaps the package-global keyring
// for an in-memory one, so they must not run in parallel.

func TestKeychainStoreContract(t *testing.T) {
	keyring.MockInit()

	store.RunContractTests(t, store.ContractTest{
		NewStore: func(t *testing.T) store.Store {
			s, err := stores.NewKeychainStore("keychain", map[string]interface{}{})
			require.NoError(t, err)
			return s
		},
	})
}

func TestKeychainStoreListMaintainsIndex(t *testing.T) {
	keyring.MockInit()

	s, err := stores.NewKeychainStore("keychain", map[string]interface{}{})
	require.NoError(t, err)

	_, err = s.Set(context.Background(), "api-key", "abc123")
	require.NoError(t, err)
	_, err = s.Set(context.Background(), "db-pass", "hunter2")
	require.NoError(t, err)

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"api-key", "db-pass"}, names)

	require.NoError(t, s.Delete(context.Background(), "api-key"))

	names, err = s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"db-pass"}, names)
}

func TestKeychainStorePrefixSelectsService(t *testing.T) {
	keyring.MockInit()

	scoped, err := stores.NewKeychainStore("keychain", map[string]interface{}{"prefix": "vaultdoor-staging"})
	require.NoError(t, err)
	plain, err := stores.NewKeychainStore("keychain", map[string]interface{}{})
	require.NoError(t, err)

	_, err = scoped.Set(context.Background(), "db-pass", "hunter2")
	require.NoError(t, err)

	// The default service must not see items written under the prefix
	_, err = plain.Get(context.Background(), "db-pass")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))

	got, err := scoped.Get(context.Background(), "db-pass")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got.Value)
}

func TestKeychainStoreReservedIndexName(t *testing.T) {
	keyring.MockInit()

	s, err := stores.NewKeychainStore("keychain", map[string]interface{}{})
	require.NoError(t, err)

	_, err = s.Set(context.Background(), "__index__", "oops")
	assert.True(t, store.IsInvalidName(err), "expected invalid name, got: %v", err)

	_, err = s.Get(context.Background(), "__index__")
	assert.True(t, store.IsInvalidName(err), "expected invalid name, got: %v", err)

	err = s.Delete(context.Background(), "__index__")
	assert.True(t, store.IsInvalidName(err), "expected invalid name, got: %v", err)
}

func TestKeychainStoreVersionlessValues(t *testing.T) {
	keyring.MockInit()

	s, err := stores.NewKeychainStore("keychain", map[string]interface{}{})
	require.NoError(t, err)

	set, err := s.Set(context.Background(), "db-pass", "hunter2")
	require.NoError(t, err)
	assert.Empty(t, set.Version)
	assert.False(t, set.UpdatedAt.IsZero())

	got, err := s.Get(context.Background(), "db-pass")
	require.NoError(t, err)
	assert.Empty(t, got.Version)
}

func TestKeychainStoreCorruptIndex(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("vaultdoor", "__index__", "{not json"))

	s, err := stores.NewKeychainStore("keychain", map[string]interface{}{})
	require.NoError(t, err)

	_, err = s.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt keychain index")
}

func TestKeychainStoreIndexRecordsNameOnce(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKeyringClient()
	s := newTestKeychainStore(t, fake)

	_, err := s.Set(context.Background(), "db-pass", "hunter2")
	require.NoError(t, err)
	_, err = s.Set(context.Background(), "db-pass", "hunter3")
	require.NoError(t, err)

	assert.Equal(t, `["db-pass"]`, fake.Secrets["vaultdoor"]["__index__"])
	// Second write finds the name already indexed and skips the index update
	assert.Equal(t, 3, fake.SetCalls)
}

func TestKeychainStoreAccessDeniedMapsToAccessDenied(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKeyringClient()
	fake.Errors["db-pass"] = fakes.KeychainAccessDeniedError()
	s := newTestKeychainStore(t, fake)

	_, err := s.Get(context.Background(), "db-pass")
	require.Error(t, err)
	assert.True(t, store.IsAccessDenied(err), "expected access denied, got: %v", err)
	assert.Contains(t, err.Error(), "Unlock the keychain")
}

func TestKeychainStoreValidateHealthyWhenEmpty(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKeyringClient()
	s := newTestKeychainStore(t, fake)

	require.NoError(t, s.Validate(context.Background()))
	assert.Equal(t, 1, fake.GetCalls)
}

func TestKeychainStoreValidateReportsSuggestion(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeKeyringClient()
	fake.Errors["__index__"] = fakes.KeychainDBusError()
	s := newTestKeychainStore(t, fake)

	err := s.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to access the OS keychain")
	assert.Contains(t, err.Error(), "Secret Service daemon")
}

func TestKeychainStoreCapabilities(t *testing.T) {
	t.Parallel()

	s := newTestKeychainStore(t, fakes.NewFakeKeyringClient())

	caps := s.Capabilities()
	assert.False(t, caps.SupportsVersioning)
	assert.True(t, caps.SupportsList)
	assert.False(t, caps.RequiresAuth)
	assert.Contains(t, caps.AuthMethods, "os")
}
