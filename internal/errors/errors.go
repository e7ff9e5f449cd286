package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the operator with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// StoreError enhances backend-specific errors with operator context
func StoreError(storeType string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s error during %s", storeType, operation),
		Suggestion: getStoreSuggestion(storeType, err),
		Err:        err,
	}
}

// getStoreSuggestion returns helpful suggestions based on backend and error
func getStoreSuggestion(storeType string, err error) string {
	errStr := err.Error()

	switch {
	case strings.HasPrefix(storeType, "azure"):
		if strings.Contains(errStr, "AADSTS") || strings.Contains(errStr, "401") {
			return "Run 'az login' or configure AZURE_CLIENT_ID/AZURE_TENANT_ID/AZURE_CLIENT_SECRET"
		}
		if strings.Contains(errStr, "Forbidden") || strings.Contains(errStr, "403") {
			return "Grant the identity get/set/list/delete secret permissions on the vault's access policy or RBAC role"
		}
	case strings.HasPrefix(storeType, "aws"):
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for the secretsmanager/ssm actions this server uses"
		}
		if strings.Contains(errStr, "ThrottlingException") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}
	case strings.HasPrefix(storeType, "gcp"):
		if strings.Contains(errStr, "PermissionDenied") {
			return "Grant roles/secretmanager.admin (or narrower) to the configured service account"
		}
		if strings.Contains(errStr, "Unauthenticated") {
			return "Set GOOGLE_APPLICATION_CREDENTIALS or run 'gcloud auth application-default login'"
		}
	case storeType == "sql":
		if strings.Contains(errStr, "connection refused") {
			return "Check the DSN host/port and that the database is accepting connections"
		}
	case storeType == "keychain":
		if strings.Contains(errStr, "secret service") || strings.Contains(errStr, "dbus") {
			return "A Secret Service implementation (gnome-keyring, KWallet) must be running"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and store configuration"
	}

	return ""
}

// SimplifyError simplifies complex error messages for operators
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already an operator-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
