package stores

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	vderrors "github.com/systmms/vaultdoor/internal/errors"
	"github.com/systmms/vaultdoor/internal/logging"
)

// credentialStrategy is one entry in the ordered credential chain.
type credentialStrategy struct {
	name  string
	build func(config AzureConfig) (azcore.TokenCredential, error)
}

// chainStrategies is the fixed priority order for "chain" auth:
// platform-assigned managed identity first, then a cached Azure CLI
// session, then environment-supplied service principal credentials.
var chainStrategies = []credentialStrategy{
	{name: "managed_identity", build: buildManagedIdentityCredential},
	{name: "cli", build: buildCLICredential},
	{name: "environment", build: buildEnvironmentCredential},
}

func buildManagedIdentityCredential(config AzureConfig) (azcore.TokenCredential, error) {
	if config.ClientID != "" {
		// User-assigned managed identity
		opts := azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(config.ClientID),
		}
		return azidentity.NewManagedIdentityCredential(&opts)
	}
	// System-assigned managed identity
	return azidentity.NewManagedIdentityCredential(nil)
}

func buildCLICredential(config AzureConfig) (azcore.TokenCredential, error) {
	var opts *azidentity.AzureCLICredentialOptions
	if config.TenantID != "" {
		opts = &azidentity.AzureCLICredentialOptions{TenantID: config.TenantID}
	}
	return azidentity.NewAzureCLICredential(opts)
}

func buildEnvironmentCredential(config AzureConfig) (azcore.TokenCredential, error) {
	return azidentity.NewEnvironmentCredential(nil)
}

// newAzureCredential builds the credential for the configured auth method.
// "chain" is the default.
func newAzureCredential(config AzureConfig, logger *logging.Logger) (azcore.TokenCredential, error) {
	switch config.Auth {
	case "", "chain":
		return buildChainedCredential(config, logger)
	case "managed_identity":
		return buildManagedIdentityCredential(config)
	case "cli":
		return buildCLICredential(config)
	case "environment":
		return buildEnvironmentCredential(config)
	case "client_secret":
		if config.TenantID == "" || config.ClientID == "" || config.ClientSecret == "" {
			return nil, vderrors.ConfigError{
				Field:      "auth",
				Value:      "client_secret",
				Message:    "tenant_id, client_id, and client_secret are all required for service principal authentication",
				Suggestion: "Provide the full service principal triple, or use auth: chain",
			}
		}
		return azidentity.NewClientSecretCredential(config.TenantID, config.ClientID, config.ClientSecret, nil)
	case "default":
		return azidentity.NewDefaultAzureCredential(nil)
	default:
		return nil, vderrors.ConfigError{
			Field:      "auth",
			Value:      config.Auth,
			Message:    "Unknown Azure credential method",
			Suggestion: "Use one of: chain, managed_identity, cli, environment, client_secret, default",
		}
	}
}

// buildChainedCredential composes the strategies in priority order with
// NewChainedTokenCredential; the first source able to produce a token wins.
// Sources that cannot even be constructed (missing env vars, no CLI binary)
// are skipped here so the chain only carries viable candidates.
func buildChainedCredential(config AzureConfig, logger *logging.Logger) (azcore.TokenCredential, error) {
	var sources []azcore.TokenCredential
	for _, strategy := range chainStrategies {
		cred, err := strategy.build(config)
		if err != nil {
			logger.Debug("Credential source %s unavailable: %v", strategy.name, err)
			continue
		}
		sources = append(sources, cred)
	}

	if len(sources) == 0 {
		return nil, vderrors.UserError{
			Message:    "No Azure credential source could be constructed",
			Suggestion: "Run 'az login', enable managed identity, or set AZURE_TENANT_ID, AZURE_CLIENT_ID, and AZURE_CLIENT_SECRET",
		}
	}

	return azidentity.NewChainedTokenCredential(sources, nil)
}

// getAzureIdentityErrorSuggestion provides helpful suggestions based on Azure credential errors
func getAzureIdentityErrorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "managed identity"):
		return "Check that Managed Identity is enabled and assigned appropriate roles"
	case strings.Contains(errStr, "invalid_client"):
		return "Check the service principal client ID and that the secret is not expired"
	case strings.Contains(errStr, "tenant"):
		return "Check that the tenant ID is correct"
	case strings.Contains(errStr, "login"):
		return "Try running 'az login' to authenticate with Azure CLI"
	default:
		return "Check Azure credentials. Try 'az login' or verify managed identity configuration"
	}
}
