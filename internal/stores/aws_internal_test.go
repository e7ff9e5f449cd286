package stores

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/systmms/vaultdoor/pkg/store"
)

func TestSecretsManagerMapError(t *testing.T) {
	s := &SecretsManagerStore{name: "aws.secretsmanager"}

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, mapped error)
	}{
		{
			name: "resource_not_found_is_not_found",
			err: &types.ResourceNotFoundException{
				Message: aws.String("Secrets Manager can't find the specified secret"),
			},
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsNotFound(mapped))
			},
		},
		{
			name: "access_denied_is_access_denied",
			err:  testError("api error AccessDeniedException: not authorized"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsAccessDenied(mapped))
			},
		},
		{
			name: "unauthorized_operation_is_access_denied",
			err:  testError("UnauthorizedOperation: you are not allowed to do that"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsAccessDenied(mapped))
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

func TestSSMMapError(t *testing.T) {
	s := &SSMStore{name: "aws.ssm"}

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, mapped error)
	}{
		{
			name: "parameter_not_found_is_not_found",
			err: &ssmtypes.ParameterNotFound{
				Message: aws.String("Parameter /vaultdoor/db-pass not found"),
			},
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsNotFound(mapped))
			},
		},
		{
			name: "not_found_by_error_text",
			err:  testError("operation error SSM: GetParameter, ParameterNotFound"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsNotFound(mapped))
			},
		},
		{
			name: "access_denied_is_access_denied",
			err:  testError("api error AccessDeniedException: not authorized"),
			check: func(t *testing.T, mapped error) {
				assert.True(t, store.IsAccessDenied(mapped))
			},
		},
		{
			name: "plain_error_is_unavailable",
			err:  testError("connection timed out"),
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

func TestIsAWSAuthError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"access_denied", testError("AccessDenied: nope"), true},
		{"unauthorized_operation", testError("UnauthorizedOperation"), true},
		{"forbidden", testError("Forbidden by policy"), true},
		{"not_found", testError("ResourceNotFoundException"), false},
		{"network", testError("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isAWSAuthError(tt.err))
		})
	}
}

func TestGetSecretsManagerErrorSuggestion(t *testing.T) {
	tests := []struct {
		name             string
		errorString      string
		expectedContains string
	}{
		{
			name:             "access_denied",
			errorString:      "api error AccessDeniedException: not authorized",
			expectedContains: "IAM permissions",
		},
		{
			name:             "expired_token",
			errorString:      "api error ExpiredTokenException: token expired",
			expectedContains: "expired",
		},
		{
			name:             "assume_role",
			errorString:      "operation error STS: AssumeRole, access denied",
			expectedContains: "role ARN",
		},
		{
			name:             "throttled",
			errorString:      "ThrottlingException: rate exceeded",
			expectedContains: "throttled",
		},
		{
			name:             "generic",
			errorString:      "something unexpected",
			expectedContains: "AWS credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestion := getSecretsManagerErrorSuggestion(testError(tt.errorString))
			assert.Contains(t, suggestion, tt.expectedContains)
		})
	}
}

func TestGetSSMErrorSuggestion(t *testing.T) {
	tests := []struct {
		name             string
		errorString      string
		expectedContains string
	}{
		{
			name:             "access_denied",
			errorString:      "api error AccessDeniedException: not authorized",
			expectedContains: "IAM permissions",
		},
		{
			name:             "parameter_not_found",
			errorString:      "ParameterNotFound: no such parameter",
			expectedContains: "case-sensitive",
		},
		{
			name:             "invalid_kms_key",
			errorString:      "InvalidKeyId: key not usable",
			expectedContains: "KMS key",
		},
		{
			name:             "generic",
			errorString:      "something unexpected",
			expectedContains: "AWS credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestion := getSSMErrorSuggestion(testError(tt.errorString))
			assert.Contains(t, suggestion, tt.expectedContains)
		})
	}
}
