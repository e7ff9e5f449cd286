package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/vaultdoor/pkg/store"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGCPMapError(t *testing.T) {
	s := &GCPStore{name: "gcp.secretmanager"}

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, mapped error)
	}{
		{
			name: "not_found_is_not_found",
			err:  status.Error(codes.NotFound, "Secret not found"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsNotFound(mapped))
			},
		},
		{
			name: "permission_denied_is_access_denied",
			err:  status.Error(codes.PermissionDenied, "caller lacks permission"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsAccessDenied(mapped))
				assert.Contains(t, mapped.Error(), "IAM permissions")
			},
		},
		{
			name: "unauthenticated_is_access_denied",
			err:  status.Error(codes.Unauthenticated, "no credentials"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsAccessDenied(mapped))
			},
		},
		{
			name: "resource_exhausted_is_unavailable",
			err:  status.Error(codes.ResourceExhausted, "quota exceeded"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsUnavailable(mapped))
			},
		},
		{
			name: "plain_error_is_unavailable",
			err:  testError("connection timeout"),
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

func TestVersionFromResourceName(t *testing.T) {
	tests := []struct {
		name         string
		resourceName string
		expected     string
	}{
		{
			name:         "full_version_resource",
			resourceName: "projects/test-project/secrets/db-pass/versions/7",
			expected:     "7",
		},
		{
			name:         "secret_resource_without_version",
			resourceName: "projects/test-project/secrets/db-pass",
			expected:     "latest",
		},
		{
			name:         "short_name",
			resourceName: "db-pass",
			expected:     "latest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, versionFromResourceName(tt.resourceName))
		})
	}
}

func TestGetGCPErrorSuggestion(t *testing.T) {
	tests := []struct {
		name             string
		errorString      string
		expectedContains string
	}{
		{
			name:             "permission_denied",
			errorString:      "rpc error: code = PermissionDenied desc = caller lacks permission",
			expectedContains: "IAM permissions",
		},
		{
			name:             "not_found",
			errorString:      "rpc error: code = NotFound desc = secret missing",
			expectedContains: "secret exists",
		},
		{
			name:             "unauthenticated",
			errorString:      "rpc error: code = Unauthenticated desc = no credentials",
			expectedContains: "gcloud auth",
		},
		{
			name:             "resource_exhausted",
			errorString:      "rpc error: code = ResourceExhausted desc = quota",
			expectedContains: "throttled",
		},
		{
			name:             "generic",
			errorString:      "some unknown failure",
			expectedContains: "GCP credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestion := getGCPErrorSuggestion(testError(tt.errorString))
			assert.Contains(t, suggestion, tt.expectedContains)
		})
	}
}
