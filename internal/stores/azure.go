package stores

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	vderrors "github.com/systmms/vaultdoor/internal/errors"
	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/pkg/store"
)

// KeyVaultClientAPI defines the interface for Azure Key Vault operations
// This allows for mocking in tests
type KeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
	DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error)
	NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse]
}

// KeyVaultStore implements the Store interface for Azure Key Vault
type KeyVaultStore struct {
	name     string
	client   KeyVaultClientAPI
	logger   *logging.Logger
	config   AzureConfig
	vaultURL string
}

// AzureConfig holds Azure Key Vault-specific configuration
type AzureConfig struct {
	VaultURL     string
	Auth         string // chain, managed_identity, cli, environment, client_secret, default
	TenantID     string
	ClientID     string
	ClientSecret string
}

// AzureStoreOption is a functional option for configuring the Key Vault store
type AzureStoreOption func(*KeyVaultStore)

// WithKeyVaultClient sets a custom Key Vault client (for testing)
func WithKeyVaultClient(client KeyVaultClientAPI) AzureStoreOption {
	return func(s *KeyVaultStore) {
		s.client = client
	}
}

// NewKeyVaultStore creates a new Azure Key Vault store
func NewKeyVaultStore(name string, configMap map[string]interface{}, opts ...AzureStoreOption) (*KeyVaultStore, error) {
	logger := logging.New(false, false)

	var config AzureConfig
	if vaultURL, ok := configMap["url"].(string); ok {
		config.VaultURL = vaultURL
	}
	if auth, ok := configMap["auth"].(string); ok {
		config.Auth = auth
	}
	if tenantID, ok := configMap["tenant_id"].(string); ok {
		config.TenantID = tenantID
	}
	if clientID, ok := configMap["client_id"].(string); ok {
		config.ClientID = clientID
	}
	if clientSecret, ok := configMap["client_secret"].(string); ok {
		config.ClientSecret = clientSecret
	}

	if config.VaultURL == "" {
		return nil, vderrors.ConfigError{
			Field:      "url",
			Message:    "url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if _, err := url.Parse(config.VaultURL); err != nil {
		return nil, vderrors.ConfigError{
			Field:      "url",
			Value:      config.VaultURL,
			Message:    "Invalid Key Vault URL",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}

	s := &KeyVaultStore{
		name:     name,
		logger:   logger,
		config:   config,
		vaultURL: config.VaultURL,
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(s)
	}

	// If no client was provided via options, create real client
	if s.client == nil {
		client, err := createKeyVaultClient(config, logger)
		if err != nil {
			return nil, err
		}
		s.client = client
	}

	return s, nil
}

// createKeyVaultClient creates an azsecrets client authenticated through the
// configured credential method.
func createKeyVaultClient(config AzureConfig, logger *logging.Logger) (*azsecrets.Client, error) {
	cred, err := newAzureCredential(config, logger)
	if err != nil {
		return nil, err
	}

	client, err := azsecrets.NewClient(config.VaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	return client, nil
}

// Name returns the store type identifier
func (s *KeyVaultStore) Name() string {
	return s.name
}

// Set writes a secret to Key Vault, creating a new version
func (s *KeyVaultStore) Set(ctx context.Context, name, value string) (store.SecretValue, error) {
	s.logger.Debug("Writing Key Vault secret: %s", logging.Secret(name))

	params := azsecrets.SetSecretParameters{Value: to.Ptr(value)}
	resp, err := s.client.SetSecret(ctx, name, params, nil)
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}

	out := store.SecretValue{Value: value}
	if resp.ID != nil {
		out.Version = resp.ID.Version()
	}
	if resp.Attributes != nil && resp.Attributes.Updated != nil {
		out.UpdatedAt = *resp.Attributes.Updated
	}
	return out, nil
}

// Get fetches the current version of a secret from Key Vault
func (s *KeyVaultStore) Get(ctx context.Context, name string) (store.SecretValue, error) {
	s.logger.Debug("Reading Key Vault secret: %s", logging.Secret(name))

	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}
	if resp.Value == nil {
		return store.SecretValue{}, fmt.Errorf("secret has no value")
	}

	out := store.SecretValue{Value: *resp.Value}
	if resp.ID != nil {
		out.Version = resp.ID.Version()
	}
	if resp.Attributes != nil && resp.Attributes.Updated != nil {
		out.UpdatedAt = *resp.Attributes.Updated
	}
	return out, nil
}

// List enumerates all secret names in the vault
func (s *KeyVaultStore) List(ctx context.Context) ([]string, error) {
	names := []string{}

	pager := s.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, s.mapError("", err)
		}
		for _, props := range page.Value {
			if props == nil || props.ID == nil {
				continue
			}
			names = append(names, props.ID.Name())
		}
	}

	return names, nil
}

// Delete removes a secret; Key Vault starts its soft-delete recovery window
func (s *KeyVaultStore) Delete(ctx context.Context, name string) error {
	s.logger.Debug("Deleting Key Vault secret: %s", logging.Secret(name))

	if _, err := s.client.DeleteSecret(ctx, name, nil); err != nil {
		return s.mapError(name, err)
	}
	return nil
}

// Validate checks connectivity by fetching the first page of the secret list
func (s *KeyVaultStore) Validate(ctx context.Context) error {
	pager := s.client.NewListSecretPropertiesPager(nil)
	if _, err := pager.NextPage(ctx); err != nil {
		return vderrors.UserError{
			Message:    "Failed to connect to Azure Key Vault",
			Details:    err.Error(),
			Suggestion: getAzureErrorSuggestion(err),
		}
	}
	return nil
}

// Capabilities returns the store's capabilities
func (s *KeyVaultStore) Capabilities() store.Capabilities {
	return store.Capabilities{
		SupportsVersioning: true,
		SupportsList:       true,
		SoftDelete:         true,
		RequiresAuth:       true,
		AuthMethods:        []string{"managed_identity", "cli", "environment"},
	}
}

// mapError converts Key Vault SDK failures to the shared store error kinds.
// 401 is an authentication problem (credential chain), 403 an authorization
// one (access policy); both surface as access denied.
func (s *KeyVaultStore) mapError(name string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return store.NotFoundError{Store: s.name, Name: name}
		case 401:
			return store.AccessDeniedError{
				Store:   s.name,
				Message: fmt.Sprintf("%s. %s", respErr.ErrorCode, getAzureIdentityErrorSuggestion(err)),
			}
		case 403:
			return store.AccessDeniedError{
				Store:   s.name,
				Message: fmt.Sprintf("%s. %s", respErr.ErrorCode, getAzureErrorSuggestion(err)),
			}
		}
	}
	if isAzureNotFoundError(err) {
		return store.NotFoundError{Store: s.name, Name: name}
	}
	return store.UnavailableError{Store: s.name, Err: err}
}

// isAzureNotFoundError checks if the error indicates a secret was not found
func isAzureNotFoundError(err error) bool {
	return strings.Contains(err.Error(), "SecretNotFound") || strings.Contains(err.Error(), "404")
}

// getAzureErrorSuggestion provides helpful suggestions based on Azure errors
func getAzureErrorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "access denied"):
		return "Check Key Vault access policies: 'Get', 'Set', 'List', and 'Delete' permissions are required for secrets"
	case strings.Contains(errStr, "secretnotfound") || strings.Contains(errStr, "404"):
		return "Verify the secret name exists in the Key Vault. Secret names are case-sensitive"
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401"):
		return "Check authentication: verify managed identity, Azure CLI login, or environment credentials"
	case strings.Contains(errStr, "vault not found") || strings.Contains(errStr, "keyvaulterror"):
		return "Check the vault URL format and that the Key Vault exists"
	case strings.Contains(errStr, "throttled") || strings.Contains(errStr, "429"):
		return "Request was throttled. Reduce request rate"
	case strings.Contains(errStr, "tenant"):
		return "Check that the tenant ID is correct and the application is registered"
	default:
		return "Check Azure credentials, Key Vault URL, and access policies"
	}
}

// NewKeyVaultStoreFactory creates an Azure Key Vault store factory
func NewKeyVaultStoreFactory(name string, config map[string]interface{}) (store.Store, error) {
	return NewKeyVaultStore(name, config)
}
