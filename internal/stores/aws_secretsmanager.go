package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	vderrors "github.com/systmms/vaultdoor/internal/errors"
	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/pkg/store"
)

// SecretsManagerClientAPI defines the interface for AWS Secrets Manager operations
// This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// SecretsManagerStore implements the Store interface for AWS Secrets Manager
type SecretsManagerStore struct {
	name   string
	client SecretsManagerClientAPI
	logger *logging.Logger
	config SecretsManagerConfig
}

// SecretsManagerConfig holds AWS Secrets Manager-specific configuration
type SecretsManagerConfig struct {
	Region          string
	Profile         string
	Endpoint        string // Optional custom endpoint for LocalStack or testing
	AccessKeyID     string
	SecretAccessKey string
	AssumeRole      string
	ExternalID      string
}

// SecretsManagerStoreOption is a functional option for configuring the store
type SecretsManagerStoreOption func(*SecretsManagerStore)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) SecretsManagerStoreOption {
	return func(s *SecretsManagerStore) {
		s.client = client
	}
}

// NewSecretsManagerStore creates a new AWS Secrets Manager store
func NewSecretsManagerStore(name string, configMap map[string]interface{}, opts ...SecretsManagerStoreOption) (*SecretsManagerStore, error) {
	logger := logging.New(false, false)

	config := SecretsManagerConfig{
		Region: "us-east-1", // Default region
	}
	if region, ok := configMap["region"].(string); ok && region != "" {
		config.Region = region
	}
	if profile, ok := configMap["profile"].(string); ok {
		config.Profile = profile
	}
	if endpoint, ok := configMap["endpoint"].(string); ok {
		config.Endpoint = endpoint
	}
	if accessKey, ok := configMap["access_key_id"].(string); ok {
		config.AccessKeyID = accessKey
	}
	if secretKey, ok := configMap["secret_access_key"].(string); ok {
		config.SecretAccessKey = secretKey
	}
	if role, ok := configMap["assume_role"].(string); ok {
		config.AssumeRole = role
	}
	if externalID, ok := configMap["external_id"].(string); ok {
		config.ExternalID = externalID
	}

	s := &SecretsManagerStore{
		name:   name,
		logger: logger,
		config: config,
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(s)
	}

	// If no client was provided via options, create real client
	if s.client == nil {
		client, err := createSecretsManagerClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create Secrets Manager client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

// createSecretsManagerClient creates an AWS Secrets Manager client with the
// given configuration.
func createSecretsManagerClient(config SecretsManagerConfig) (*secretsmanager.Client, error) {
	ctx := context.Background()

	// Build config options
	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(config.Region))

	if config.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(config.Profile))
	}

	// Use static credentials if provided (for LocalStack/testing)
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	// Load AWS configuration
	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Layer an assumed role on top of the base credentials when configured
	if config.AssumeRole != "" {
		stsClient := sts.NewFromConfig(cfg)
		roleProvider := stscreds.NewAssumeRoleProvider(stsClient, config.AssumeRole, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = fmt.Sprintf("vaultdoor-%d", time.Now().Unix())
			if config.ExternalID != "" {
				o.ExternalID = aws.String(config.ExternalID)
			}
		})
		cfg.Credentials = aws.NewCredentialsCache(roleProvider)
	}

	// Create Secrets Manager client with optional custom endpoint
	var clientOpts []func(*secretsmanager.Options)
	if config.Endpoint != "" {
		endpoint := config.Endpoint
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = &endpoint
		})
	}

	return secretsmanager.NewFromConfig(cfg, clientOpts...), nil
}

// Name returns the store type identifier
func (s *SecretsManagerStore) Name() string {
	return s.name
}

// Set writes a secret, creating it on the first write and adding a new
// version on subsequent writes
func (s *SecretsManagerStore) Set(ctx context.Context, name, value string) (store.SecretValue, error) {
	s.logger.Debug("Writing Secrets Manager secret: %s", logging.Secret(name))

	put, err := s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(value),
	})
	if err == nil {
		return store.SecretValue{
			Value:     value,
			Version:   aws.ToString(put.VersionId),
			UpdatedAt: time.Now(),
		}, nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return store.SecretValue{}, s.mapError(name, err)
	}

	created, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(value),
	})
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}

	return store.SecretValue{
		Value:     value,
		Version:   aws.ToString(created.VersionId),
		UpdatedAt: time.Now(),
	}, nil
}

// Get fetches the current version of a secret
func (s *SecretsManagerStore) Get(ctx context.Context, name string) (store.SecretValue, error) {
	s.logger.Debug("Reading Secrets Manager secret: %s", logging.Secret(name))

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}

	var value string
	if result.SecretString != nil {
		value = *result.SecretString
	} else if result.SecretBinary != nil {
		value = string(result.SecretBinary)
	} else {
		return store.SecretValue{}, fmt.Errorf("secret has no value")
	}

	out := store.SecretValue{Value: value, Version: aws.ToString(result.VersionId)}
	if result.CreatedDate != nil {
		out.UpdatedAt = *result.CreatedDate
	}
	return out, nil
}

// List enumerates all secret names in the configured region
func (s *SecretsManagerStore) List(ctx context.Context) ([]string, error) {
	names := []string{}

	input := &secretsmanager.ListSecretsInput{MaxResults: aws.Int32(100)}
	for {
		page, err := s.client.ListSecrets(ctx, input)
		if err != nil {
			return nil, s.mapError("", err)
		}
		for _, entry := range page.SecretList {
			if entry.Name == nil {
				continue
			}
			names = append(names, *entry.Name)
		}
		if page.NextToken == nil {
			break
		}
		input.NextToken = page.NextToken
	}

	return names, nil
}

// Delete removes a secret immediately, skipping the recovery window so the
// name can be reused right away
func (s *SecretsManagerStore) Delete(ctx context.Context, name string) error {
	s.logger.Debug("Deleting Secrets Manager secret: %s", logging.Secret(name))

	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(name),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		return s.mapError(name, err)
	}
	return nil
}

// Validate checks connectivity by listing at most one secret
func (s *SecretsManagerStore) Validate(ctx context.Context) error {
	input := &secretsmanager.ListSecretsInput{MaxResults: aws.Int32(1)}
	if _, err := s.client.ListSecrets(ctx, input); err != nil {
		return vderrors.UserError{
			Message:    "Failed to connect to AWS Secrets Manager",
			Details:    err.Error(),
			Suggestion: getSecretsManagerErrorSuggestion(err),
		}
	}
	return nil
}

// Capabilities returns the store's capabilities
func (s *SecretsManagerStore) Capabilities() store.Capabilities {
	return store.Capabilities{
		SupportsVersioning: true,
		SupportsList:       true,
		SoftDelete:         false,
		RequiresAuth:       true,
		AuthMethods:        []string{"environment", "profile", "assume_role"},
	}
}

// mapError converts Secrets Manager SDK failures to the shared store error kinds
func (s *SecretsManagerStore) mapError(name string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return store.NotFoundError{Store: s.name, Name: name}
	}
	if isAWSAuthError(err) {
		return store.AccessDeniedError{
			Store:   s.name,
			Message: fmt.Sprintf("AWS authentication/authorization failed: %v", err),
		}
	}
	return store.UnavailableError{Store: s.name, Err: err}
}

// isAWSAuthError checks for common auth-related errors by string matching
func isAWSAuthError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "UnauthorizedOperation") ||
		strings.Contains(errStr, "InvalidUserID") ||
		strings.Contains(errStr, "Forbidden")
}

// getSecretsManagerErrorSuggestion provides helpful suggestions based on Secrets Manager errors
func getSecretsManagerErrorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "accessdenied"):
		return "Check IAM permissions: secretsmanager:GetSecretValue, secretsmanager:PutSecretValue, secretsmanager:CreateSecret, and secretsmanager:ListSecrets"
	case strings.Contains(errStr, "expiredtoken"):
		return "AWS credentials have expired. Refresh your session or run 'aws sso login'"
	case strings.Contains(errStr, "assumerole"):
		return "Check that the role ARN is correct and the trust policy allows your principal"
	case strings.Contains(errStr, "throttl"):
		return "Request was throttled. Consider adding exponential backoff or reducing request rate"
	case strings.Contains(errStr, "region"):
		return "Check that you're using the correct AWS region where the secret is stored"
	case strings.Contains(errStr, "no such host"):
		return "Check the endpoint URL and network connectivity"
	default:
		return "Check AWS credentials, region, and IAM permissions for Secrets Manager"
	}
}

// NewSecretsManagerStoreFactory creates an AWS Secrets Manager store factory
func NewSecretsManagerStoreFactory(name string, config map[string]interface{}) (store.Store, error) {
	return NewSecretsManagerStore(name, config)
}
