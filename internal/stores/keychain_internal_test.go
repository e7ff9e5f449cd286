package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/vaultdoor/pkg/store"
	"github.com/zalando/go-keyring"
)

func TestKeychainMapError(t *testing.T) {
	s := &KeychainStore{name: "keychain"}

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, mapped error)
	}{
		{
			name: "keyring_not_found_is_not_found",
			err:  keyring.ErrNotFound,
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsNotFound(mapped))
			},
		},
		{
			name: "item_not_found_text_is_not_found",
			err:  testError("keychain error: itemNotFound"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsNotFound(mapped))
			},
		},
		{
			name: "access_denied_is_access_denied",
			err:  testError("keychain access denied: user interaction required"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsAccessDenied(mapped))
			},
		},
		{
			name: "dbus_failure_is_unavailable",
			err:  testError("dbus: couldn't determine address of session bus"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsUnavailable(mapped))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, s.mapError("db-pass", tt.err))
		})
	}
}

func TestGetKeychainErrorSuggestion(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "dbus_failure",
			err:      testError("dbus: couldn't determine address of session bus"),
			contains: "Secret Service daemon",
		},
		{
			name:     "access_denied",
			err:      testError("keychain access denied"),
			contains: "Unlock the keychain",
		},
		{
			name:     "unsupported_platform",
			err:      testError("keyring: operation not supported"),
			contains: "not available on this platform",
		},
		{
			name:     "default",
			err:      testError("something odd happened"),
			contains: "unlocked and accessible",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, getKeychainErrorSuggestion(tt.err), tt.contains)
		})
	}
}
