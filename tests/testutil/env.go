package testutil

import (
	"os"
	"testing"
)

// SetupTestEnv sets environment variables for the duration of a test and
// restores the originals via t.Cleanup.
//
// Unlike t.Setenv this takes a map, which reads better when a test needs
// a whole configuration surface at once:
//
//	testutil.SetupTestEnv(t, map[string]string{
//	    "VAULTDOOR_STORE_TYPE": "memory",
//	    "VAULTDOOR_API_TOKEN":  "test-token",
//	})
func SetupTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	original := make(map[string]string)
	unset := make([]string, 0)

	for key, value := range vars {
		if orig, ok := os.LookupEnv(key); ok {
			original[key] = orig
		} else {
			unset = append(unset, key)
		}

		if err := os.Setenv(key, value); err != nil {
			t.Fatalf("Failed to set environment variable %s: %v", key, err)
		}
	}

	t.Cleanup(func() {
		for key, value := range original {
			if err := os.Setenv(key, value); err != nil {
				t.Errorf("Failed to restore environment variable %s: %v", key, err)
			}
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Errorf("Failed to unset environment variable %s: %v", key, err)
			}
		}
	})
}
