package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	vderrors "github.com/systmms/vaultdoor/internal/errors"
	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/pkg/store"
)

// SSMClientAPI defines the interface for AWS SSM Parameter Store operations
// This allows for mocking in tests
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error)
	DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error)
}

// SSMStore implements the Store interface for AWS Systems Manager Parameter Store
type SSMStore struct {
	name   string
	client SSMClientAPI
	logger *logging.Logger
	config SSMConfig
}

// SSMConfig holds AWS SSM-specific configuration
type SSMConfig struct {
	Region          string
	Profile         string
	WithDecryption  bool
	ParameterPrefix string
}

// SSMStoreOption is a functional option for configuring the SSM store
type SSMStoreOption func(*SSMStore)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) SSMStoreOption {
	return func(s *SSMStore) {
		s.client = client
	}
}

// NewSSMStore creates a new AWS SSM Parameter Store store
func NewSSMStore(name string, configMap map[string]interface{}, opts ...SSMStoreOption) (*SSMStore, error) {
	logger := logging.New(false, false)

	config := SSMConfig{
		WithDecryption: true, // Default to decrypting SecureString parameters
	}
	if region, ok := configMap["region"].(string); ok {
		config.Region = region
	}
	if profile, ok := configMap["profile"].(string); ok {
		config.Profile = profile
	}
	if decrypt, ok := configMap["with_decryption"].(bool); ok {
		config.WithDecryption = decrypt
	}
	if prefix, ok := configMap["prefix"].(string); ok {
		config.ParameterPrefix = prefix
	}

	s := &SSMStore{
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
		client, err := createSSMClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSM client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

// createSSMClient creates an AWS SSM client with the given configuration
func createSSMClient(config SSMConfig) (*ssm.Client, error) {
	ctx := context.Background()

	// Build config options
	var configOpts []func(*awsconfig.LoadOptions) error

	if config.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(config.Region))
	}

	if config.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(config.Profile))
	}

	// Load AWS configuration
	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return ssm.NewFromConfig(cfg), nil
}

// parameterName applies the configured prefix to a secret name
func (s *SSMStore) parameterName(name string) string {
	return s.config.ParameterPrefix + name
}

// Name returns the store type identifier
func (s *SSMStore) Name() string {
	return s.name
}

// Set writes a SecureString parameter, overwriting any existing value
func (s *SSMStore) Set(ctx context.Context, name, value string) (store.SecretValue, error) {
	parameterName := s.parameterName(name)
	s.logger.Debug("Writing SSM parameter: %s", logging.Secret(parameterName))

	result, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(parameterName),
		Value:     aws.String(value),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}

	return store.SecretValue{
		Value:     value,
		Version:   fmt.Sprintf("%d", result.Version),
		UpdatedAt: time.Now(),
	}, nil
}

// Get fetches a parameter, decrypting SecureString values by default
func (s *SSMStore) Get(ctx context.Context, name string) (store.SecretValue, error) {
	parameterName := s.parameterName(name)
	s.logger.Debug("Reading SSM parameter: %s", logging.Secret(parameterName))

	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(parameterName),
		WithDecryption: aws.Bool(s.config.WithDecryption),
	})
	if err != nil {
		return store.SecretValue{}, s.mapError(name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return store.SecretValue{}, fmt.Errorf("parameter has no value")
	}

	out := store.SecretValue{
		Value:   *result.Parameter.Value,
		Version: fmt.Sprintf("%d", result.Parameter.Version),
	}
	if result.Parameter.LastModifiedDate != nil {
		out.UpdatedAt = *result.Parameter.LastModifiedDate
	}
	return out, nil
}

// List enumerates parameter names under the configured prefix, with the
// prefix stripped so names round-trip through Set and Get
func (s *SSMStore) List(ctx context.Context) ([]string, error) {
	names := []string{}

	input := &ssm.DescribeParametersInput{MaxResults: aws.Int32(50)}
	if s.config.ParameterPrefix != "" {
		input.ParameterFilters = []types.ParameterStringFilter{
			{
				Key:    aws.String("Name"),
				Option: aws.String("BeginsWith"),
				Values: []string{s.config.ParameterPrefix},
			},
		}
	}

	for {
		page, err := s.client.DescribeParameters(ctx, input)
		if err != nil {
			return nil, s.mapError("", err)
		}
		for _, param := range page.Parameters {
			if param.Name == nil {
				continue
			}
			names = append(names, strings.TrimPrefix(*param.Name, s.config.ParameterPrefix))
		}
		if page.NextToken == nil {
			break
		}
		input.NextToken = page.NextToken
	}

	return names, nil
}

// Delete removes a parameter
func (s *SSMStore) Delete(ctx context.Context, name string) error {
	parameterName := s.parameterName(name)
	s.logger.Debug("Deleting SSM parameter: %s", logging.Secret(parameterName))

	_, err := s.client.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(parameterName),
	})
	if err != nil {
		return s.mapError(name, err)
	}
	return nil
}

// Validate checks connectivity by describing at most one parameter
func (s *SSMStore) Validate(ctx context.Context) error {
	input := &ssm.DescribeParametersInput{MaxResults: aws.Int32(1)}
	if _, err := s.client.DescribeParameters(ctx, input); err != nil {
		return vderrors.UserError{
			Message:    "Failed to connect to AWS SSM Parameter Store",
			Details:    err.Error(),
			Suggestion: getSSMErrorSuggestion(err),
		}
	}
	return nil
}

// Capabilities returns the store's capabilities
func (s *SSMStore) Capabilities() store.Capabilities {
	return store.Capabilities{
		SupportsVersioning: true,
		SupportsList:       true,
		SoftDelete:         false,
		RequiresAuth:       true,
		AuthMethods:        []string{"iam", "profile"},
	}
}

// mapError converts SSM SDK failures to the shared store error kinds
func (s *SSMStore) mapError(name string, err error) error {
	var notFound *types.ParameterNotFound
	if errors.As(err, &notFound) || isParameterNotFoundError(err) {
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

// isParameterNotFoundError checks if the error is a parameter not found error
func isParameterNotFoundError(err error) bool {
	return strings.Contains(err.Error(), "ParameterNotFound")
}

// getSSMErrorSuggestion provides helpful suggestions based on SSM errors
func getSSMErrorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "accessdenied"):
		return "Check IAM permissions: ssm:GetParameter, ssm:PutParameter, ssm:DeleteParameter, and kms:Decrypt (for SecureString)"
	case strings.Contains(errStr, "parameternotfound"):
		return "Verify the parameter name and path. SSM parameters are case-sensitive"
	case strings.Contains(errStr, "invalidkeyid"):
		return "The KMS key for this SecureString parameter may not exist or you lack kms:Decrypt permission"
	case strings.Contains(errStr, "throttl"):
		return "Request was throttled. Consider adding exponential backoff or reducing request rate"
	case strings.Contains(errStr, "region"):
		return "Check that you're using the correct AWS region where the parameter is stored"
	default:
		return "Check AWS credentials, region, and IAM permissions for SSM Parameter Store"
	}
}

// NewSSMStoreFactory creates an AWS SSM store factory
func NewSSMStoreFactory(name string, config map[string]interface{}) (store.Store, error) {
	return NewSSMStore(name, config)
}
