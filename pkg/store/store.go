// Package store defines the core interface and types for secret store
// backends in vaultdoor.
//
// vaultdoor is an HTTP door in front of a managed secret store. This package
// is the seam between the HTTP-facing façade and the storage systems behind
// it (Azure Key Vault, AWS Secrets Manager, AWS Parameter Store, GCP Secret
// Manager, a SQL table, the OS keychain, or an in-process map). All backends
// implement the Store interface so the façade and the HTTP surface never
// care which system actually holds the secrets.
//
// # Implementing a Backend
//
// To implement a custom backend:
//
//  1. Implement the Store interface
//  2. Map backend-native failures to the error types in this package
//  3. Register a factory in the backend registry
//
// Example:
//
//	type MyStore struct {
//	    client myClient
//	}
//
//	func (s *MyStore) Name() string { return "my-store" }
//
//	func (s *MyStore) Get(ctx context.Context, name string) (SecretValue, error) {
//	    v, err := s.client.Fetch(ctx, name)
//	    if isMissing(err) {
//	        return SecretValue{}, NotFoundError{Store: s.Name(), Name: name}
//	    }
//	    if err != nil {
//	        return SecretValue{}, UnavailableError{Store: s.Name(), Err: err}
//	    }
//	    return SecretValue{Value: v}, nil
//	}
//
//	// ... implement the remaining methods
//
// # Error Handling
//
// Backends must use the error types defined in this package so callers can
// translate failures uniformly:
//   - NotFoundError when a secret does not exist
//   - AccessDeniedError when the backend rejects the caller's credentials
//     or permissions
//   - UnavailableError for transport and backend-side failures
//   - InvalidNameError for names the backend cannot accept
//
// # Security Considerations
//
// Backends must never log secret values (wrap them in logging.Secret when a
// value must appear in a format string), must support context cancellation
// on every remote call, and must use the platform SDK's secure transport.
//
// # Threading and Concurrency
//
// Store implementations must be safe for concurrent use. The HTTP surface
// calls backend methods from many requests at once.
package store

import (
	"context"
	"time"
)

// Store is the interface every secret store backend implements.
//
// Names are case-sensitive, exact-match keys into the backend; no
// normalization is performed at any layer. Implementations must be safe for
// concurrent use.
type Store interface {
	// Name returns the backend's stable type identifier, matching the type
	// string used in configuration. Examples: "azure.keyvault",
	// "aws.secretsmanager", "memory".
	Name() string

	// Set writes a secret value, creating the secret if it does not exist
	// and adding a new version otherwise. Returns the stored value with
	// whatever version information the backend assigned.
	//
	// Fails with AccessDeniedError or UnavailableError. Name validation
	// happens before the backend is reached, but backends may still return
	// InvalidNameError for names their system rejects.
	Set(ctx context.Context, name, value string) (SecretValue, error)

	// Get retrieves the current value of a secret.
	//
	// Fails with NotFoundError if the backend has no secret under name,
	// AccessDeniedError on authorization failure, UnavailableError on
	// transport failure.
	Get(ctx context.Context, name string) (SecretValue, error)

	// List enumerates every secret name the backend holds, in backend
	// order. Values are never returned. Fails with AccessDeniedError or
	// UnavailableError.
	List(ctx context.Context) ([]string, error)

	// Delete removes a secret. Backends with soft delete (Azure Key Vault)
	// begin their recovery window; others remove the secret outright.
	// Fails with NotFoundError, AccessDeniedError, or UnavailableError.
	Delete(ctx context.Context, name string) error

	// Validate checks that the backend is reachable and the configured
	// credentials hold the minimum permissions. Used by the doctor command
	// and the readiness endpoint; must be cheap and support context
	// timeouts.
	Validate(ctx context.Context) error

	// Capabilities reports what the backend supports, so callers can warn
	// about operations a backend cannot honor.
	Capabilities() Capabilities
}

// SecretValue is a retrieved or stored secret with its backend metadata.
//
// Value holds the raw secret. Version and UpdatedAt are backend-specific and
// may be empty when the backend has no equivalent concept.
type SecretValue struct {
	// Value is the secret data. Never log this field directly.
	Value string

	// Version identifies this revision of the secret. Format is
	// backend-specific: a Key Vault version string, a Secrets Manager
	// version ID, a GCP version number, a SQL counter. Empty when the
	// backend does not version.
	Version string

	// UpdatedAt is when this revision was written, if the backend reports
	// it. Zero otherwise.
	UpdatedAt time.Time
}

// Capabilities describes the feature surface of a backend.
type Capabilities struct {
	// SupportsVersioning indicates the backend keeps prior revisions of a
	// secret rather than overwriting in place.
	SupportsVersioning bool

	// SupportsList indicates List is a native backend operation. Backends
	// without native enumeration (the OS keychain) emulate it and set this
	// to false so operators know listings are best-effort.
	SupportsList bool

	// SoftDelete indicates Delete starts a recovery window instead of
	// destroying the secret immediately.
	SoftDelete bool

	// RequiresAuth indicates the backend needs credentials. False only for
	// the in-process backend.
	RequiresAuth bool

	// AuthMethods lists the credential sources the backend can use, in the
	// order they are tried. Examples: "managed_identity", "cli",
	// "environment", "profile", "static".
	AuthMethods []string
}
