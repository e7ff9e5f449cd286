package stores

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	vderrors "github.com/systmms/vaultdoor/internal/errors"
	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/pkg/store"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretManagerClientAPI defines the interface for GCP Secret Manager operations
// This allows for mocking in tests
type SecretManagerClientAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error)
	DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator
}

// SecretIterator defines the interface for iterating over secrets
type SecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// GCPStore implements the Store interface for Google Cloud Secret Manager
type GCPStore struct {
	name      string
	client    SecretManagerClientAPI
	logger    *logging.Logger
	config    GCPConfig
	projectID string
}

// GCPConfig holds GCP Secret Manager-specific configuration
type GCPConfig struct {
	ProjectID          string
	CredentialsFile    string
	ImpersonateAccount string
}

// GCPStoreOption is a functional option for configuring the GCP store
type GCPStoreOption func(*GCPStore)

// WithSecretManagerClient sets a custom Secret Manager client (for testing)
func WithSecretManagerClient(client SecretManagerClientAPI) GCPStoreOption {
	return func(s *GCPStore) {
		s.client = client
	}
}

// NewGCPStore creates a new GCP Secret Manager store
func NewGCPStore(name string, configMap map[string]interface{}, opts ...GCPStoreOption) (*GCPStore, error) {
	logger := logging.New(false, false)

	var config GCPConfig
	if projectID, ok := configMap["project"].(string); ok {
		config.ProjectID = projectID
	}
	if credentialsFile, ok := configMap["credentials_file"].(string); ok {
		config.CredentialsFile = credentialsFile
	}
	if account, ok := configMap["impersonate_service_account"].(string); ok {
		config.ImpersonateAccount = account
	}

	if config.ProjectID == "" {
		if projectID := getGCPProjectID(); projectID != "" {
			config.ProjectID = projectID
		} else {
			return nil, vderrors.ConfigError{
				Field:      "project",
				Message:    "project is required for GCP Secret Manager",
				Suggestion: "Set project in config or the GOOGLE_CLOUD_PROJECT environment variable",
			}
		}
	}

	s := &GCPStore{
		name:      name,
		logger:    logger,
		config:    config,
		projectID: config.ProjectID,
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(s)
	}

	// If no client was provided via options, create real client
	if s.client == nil {
		client, err := createGCPClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

// createGCPClient creates a GCP Secret Manager client
func createGCPClient(config GCPConfig) (SecretManagerClientAPI, error) {
	ctx := context.Background()

	var clientOptions []option.ClientOption

	// Service account key file
	if config.CredentialsFile != "" {
		path := config.CredentialsFile
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			path = filepath.Join(home, path[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(path))
	}

	// Service account impersonation
	if config.ImpersonateAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: config.ImpersonateAccount,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = append(clientOptions, option.WithTokenSource(ts))
	}

	client, err := secretmanager.NewClient(ctx, clientOptions...)
	if err != nil {
		return nil, err
	}

	return gcpClientAdapter{client: client}, nil
}

// gcpClientAdapter narrows the generated client to SecretManagerClientAPI.
// The generated methods take gax call options, which keeps *secretmanager.Client
// from satisfying the interface directly.
type gcpClientAdapter struct {
	client *secretmanager.Client
}

func (a gcpClientAdapter) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.client.AccessSecretVersion(ctx, req)
}

func (a gcpClientAdapter) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	return a.client.CreateSecret(ctx, req)
}

func (a gcpClientAdapter) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	return a.client.AddSecretVersion(ctx, req)
}

func (a gcpClientAdapter) DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error {
	return a.client.DeleteSecret(ctx, req)
}

func (a gcpClientAdapter) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator {
	return a.client.ListSecrets(ctx, req)
}

// getGCPProjectID attempts to get the GCP project ID from the environment
func getGCPProjectID() string {
	if projectID := os.Getenv("GOOGLE_CLOUD_PROJECT"); projectID != "" {
		return projectID
	}
	if projectID := os.Getenv("GCLOUD_PROJECT"); projectID != "" {
		return projectID
	}
	if projectID := os.Getenv("GCP_PROJECT"); projectID != "" {
		return projectID
	}
	return ""
}

// secretResource builds the projects/P/secrets/S resource name
func (s *GCPStore) secretResource(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", s.projectID, name)
}

// versionResource builds the projects/P/secrets/S/versions/V resource name
func (s *GCPStore) versionResource(name, version string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", s.projectID, name, version)
}

// versionFromResourceName extracts the trailing version number from a
// projects/P/secrets/S/versions/V resource name
func versionFromResourceName(resourceName string) string {
	parts := strings.Split(resourceName, "/")
	if len(parts) >= 6 {
		return parts[5]
	}
	return "latest"
}

// Name returns the store type identifier
func (s *GCPStore) Name() string {
	return s.name
}

// Set adds a new version to a secret, creating the secret with automatic
// replication on the first write
func (s *GCPStore) Set(ctx context.Context, name, value string) (store.SecretValue, error) {
	s.logger.Debug("Writing GCP secret: %s", logging.Secret(s.secretResource(name)))

	out, err := s.addVersion(ctx, name, value)
	if err == nil {
		return out, nil
	}
	if status.Code(err) != codes.NotFound {
		return store.SecretValue{}, s.mapError(name, err)
	}

	// First write: create the secret, then attach the initial version
	req := &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", s.projectID),
		SecretId: name,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	}
	if _, err := s.client.CreateSecret(ctx, req); err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}

	out, err = s.addVersion(ctx, name, value)
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}
	return out, nil
}

// addVersion attaches a new version holding value to an existing secret
func (s *GCPStore) addVersion(ctx context.Context, name, value string) (store.SecretValue, error) {
	req := &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretResource(name),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}

	result, err := s.client.AddSecretVersion(ctx, req)
	if err != nil {
		return store.SecretValue{}, err
	}

	out := store.SecretValue{Value: value, Version: versionFromResourceName(result.Name)}
	if result.CreateTime != nil {
		out.UpdatedAt = result.CreateTime.AsTime()
	}
	return out, nil
}

// Get fetches the latest version of a secret
func (s *GCPStore) Get(ctx context.Context, name string) (store.SecretValue, error) {
	resourceName := s.versionResource(name, "latest")
	s.logger.Debug("Accessing GCP secret: %s", logging.Secret(resourceName))

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}
	if result.Payload == nil || result.Payload.Data == nil {
		return store.SecretValue{}, fmt.Errorf("secret has no data")
	}

	return store.SecretValue{
		Value:   string(result.Payload.Data),
		Version: versionFromResourceName(result.Name),
	}, nil
}

// List enumerates all secret names in the project
func (s *GCPStore) List(ctx context.Context) ([]string, error) {
	names := []string{}

	req := &secretmanagerpb.ListSecretsRequest{
		Parent: fmt.Sprintf("projects/%s", s.projectID),
	}
	it := s.client.ListSecrets(ctx, req)
	for {
		secret, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, s.mapError("", err)
		}
		parts := strings.Split(secret.Name, "/")
		names = append(names, parts[len(parts)-1])
	}

	return names, nil
}

// Delete destroys a secret and all of its versions
func (s *GCPStore) Delete(ctx context.Context, name string) error {
	s.logger.Debug("Deleting GCP secret: %s", logging.Secret(s.secretResource(name)))

	req := &secretmanagerpb.DeleteSecretRequest{Name: s.secretResource(name)}
	if err := s.client.DeleteSecret(ctx, req); err != nil {
		return s.mapError(name, err)
	}
	return nil
}

// Validate checks connectivity by listing at most one secret
func (s *GCPStore) Validate(ctx context.Context) error {
	req := &secretmanagerpb.ListSecretsRequest{
		Parent:   fmt.Sprintf("projects/%s", s.projectID),
		PageSize: 1, // Just test access
	}

	iter := s.client.ListSecrets(ctx, req)
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return vderrors.UserError{
			Message:    "Failed to connect to GCP Secret Manager",
			Details:    err.Error(),
			Suggestion: getGCPErrorSuggestion(err),
		}
	}
	return nil
}

// Capabilities returns the store's capabilities
func (s *GCPStore) Capabilities() store.Capabilities {
	return store.Capabilities{
		SupportsVersioning: true,
		SupportsList:       true,
		SoftDelete:         false,
		RequiresAuth:       true,
		AuthMethods:        []string{"service_account", "application_default", "impersonation"},
	}
}

// mapError converts Secret Manager RPC failures to the shared store error kinds
func (s *GCPStore) mapError(name string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return store.NotFoundError{Store: s.name, Name: name}
	case codes.PermissionDenied, codes.Unauthenticated:
		return store.AccessDeniedError{
			Store:   s.name,
			Message: fmt.Sprintf("%s. %s", status.Convert(err).Message(), getGCPErrorSuggestion(err)),
		}
	}
	return store.UnavailableError{Store: s.name, Err: err}
}

// getGCPErrorSuggestion provides helpful suggestions based on GCP errors
func getGCPErrorSuggestion(err error) string {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PermissionDenied"):
		return "Check IAM permissions: secretmanager.secrets.create, secretmanager.secrets.delete, secretmanager.versions.add, and secretmanager.versions.access"
	case strings.Contains(errStr, "NotFound"):
		return "Verify the secret name and project ID. Check that the secret exists"
	case strings.Contains(errStr, "Unauthenticated"):
		return "Check authentication: set GOOGLE_APPLICATION_CREDENTIALS or run 'gcloud auth application-default login'"
	case strings.Contains(errStr, "InvalidArgument"):
		return "Check the secret name format and version specification"
	case strings.Contains(errStr, "ResourceExhausted"):
		return "Request was throttled. Consider adding exponential backoff"
	case strings.Contains(errStr, "project"):
		return "Check that the project ID is correct and the project exists"
	default:
		return "Check GCP credentials, project ID, and IAM permissions for Secret Manager"
	}
}

// NewGCPStoreFactory creates a GCP Secret Manager store factory
func NewGCPStoreFactory(name string, config map[string]interface{}) (store.Store, error) {
	return NewGCPStore(name, config)
}
