package fakes

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// FakeSecretsManagerClient is an in-memory implementation of the Secrets
// Manager client interface used by the AWS store
type FakeSecretsManagerClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// ListErr is returned by ListSecrets when set
	ListErr error

	// Call counters
	GetCalls    int
	PutCalls    int
	CreateCalls int
	ListCalls   int
	DeleteCalls int

	versionCounter int
}

// SecretData holds the data for a fake secret
type SecretData struct {
	SecretString *string
	VersionId    *string
	CreatedDate  *time.Time
}

// NewFakeSecretsManagerClient creates a new fake Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretString seeds a secret without counting as a write
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = f.newSecretData(value)
}

// AddError configures the fake to return an error for a specific secret
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

func (f *FakeSecretsManagerClient) newSecretData(value string) *SecretData {
	f.versionCounter++
	now := time.Now()
	return &SecretData{
		SecretString: aws.String(value),
		VersionId:    aws.String(fmt.Sprintf("v%d-abc123", f.versionCounter)),
		CreatedDate:  &now,
	}
}

// GetSecretValue fakes the GetSecretValue operation
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++

	secretName := aws.ToString(params.SecretId)
	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	data, exists := f.Secrets[secretName]
	if !exists {
		return nil, secretNotFoundError(secretName)
	}

	return &secretsmanager.GetSecretValueOutput{
		ARN:          aws.String(secretARN(secretName)),
		Name:         params.SecretId,
		SecretString: data.SecretString,
		VersionId:    data.VersionId,
		CreatedDate:  data.CreatedDate,
	}, nil
}

// PutSecretValue fakes the PutSecretValue operation; it fails with a
// ResourceNotFoundException for secrets that were never created
func (f *FakeSecretsManagerClient) PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PutCalls++

	secretName := aws.ToString(params.SecretId)
	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	if _, exists := f.Secrets[secretName]; !exists {
		return nil, secretNotFoundError(secretName)
	}

	data := f.newSecretData(aws.ToString(params.SecretString))
	f.Secrets[secretName] = data

	return &secretsmanager.PutSecretValueOutput{
		ARN:       aws.String(secretARN(secretName)),
		Name:      params.SecretId,
		VersionId: data.VersionId,
	}, nil
}

// CreateSecret fakes the CreateSecret operation
func (f *FakeSecretsManagerClient) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++

	secretName := aws.ToString(params.Name)
	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	if _, exists := f.Secrets[secretName]; exists {
		return nil, &types.ResourceExistsException{
			Message: aws.String(fmt.Sprintf("The secret %s already exists", secretName)),
		}
	}

	data := f.newSecretData(aws.ToString(params.SecretString))
	f.Secrets[secretName] = data

	return &secretsmanager.CreateSecretOutput{
		ARN:       aws.String(secretARN(secretName)),
		Name:      params.Name,
		VersionId: data.VersionId,
	}, nil
}

// ListSecrets fakes the ListSecrets operation with NextToken paging
func (f *FakeSecretsManagerClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++

	if f.ListErr != nil {
		return nil, f.ListErr
	}

	names := make([]string, 0, len(f.Secrets))
	for name := range f.Secrets {
		names = append(names, name)
	}
	sort.Strings(names)

	start := 0
	if params.NextToken != nil {
		start, _ = strconv.Atoi(*params.NextToken)
	}

	end := len(names)
	if params.MaxResults != nil && start+int(*params.MaxResults) < end {
		end = start + int(*params.MaxResults)
	}

	out := &secretsmanager.ListSecretsOutput{}
	for _, name := range names[start:end] {
		out.SecretList = append(out.SecretList, types.SecretListEntry{Name: aws.String(name)})
	}
	if end < len(names) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

// DeleteSecret fakes the DeleteSecret operation
func (f *FakeSecretsManagerClient) DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++

	secretName := aws.ToString(params.SecretId)
	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	if _, exists := f.Secrets[secretName]; !exists {
		return nil, secretNotFoundError(secretName)
	}
	delete(f.Secrets, secretName)

	return &secretsmanager.DeleteSecretOutput{
		ARN:  aws.String(secretARN(secretName)),
		Name: params.SecretId,
	}, nil
}

func secretNotFoundError(secretName string) error {
	return &types.ResourceNotFoundException{
		Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
	}
}

func secretARN(secretName string) string {
	return fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)
}

// AWSAccessDeniedError returns the error text Secrets Manager produces when
// IAM permissions are missing
func AWSAccessDeniedError() error {
	return fmt.Errorf("api error AccessDeniedException: User is not authorized to perform secretsmanager:GetSecretValue")
}

// FakeSSMClient is an in-memory implementation of the SSM client interface
// used by the Parameter Store store
type FakeSSMClient struct {
	mu sync.Mutex

	// Parameters maps parameter names to their data
	Parameters map[string]*ParameterData
	// Errors maps parameter names to errors to return
	Errors map[string]error
	// DescribeErr is returned by DescribeParameters when set
	DescribeErr error

	// Call counters
	GetCalls      int
	PutCalls      int
	DeleteCalls   int
	DescribeCalls int
}

// ParameterData holds the data for a fake SSM parameter
type ParameterData struct {
	Name             *string
	Type             ssmtypes.ParameterType
	Value            *string
	Version          int64
	LastModifiedDate *time.Time
}

// NewFakeSSMClient creates a new fake SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]*ParameterData),
		Errors:     make(map[string]error),
	}
}

// AddSecureStringParameter seeds a SecureString parameter
func (f *FakeSSMClient) AddSecureStringParameter(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.Parameters[name] = &ParameterData{
		Name:             aws.String(name),
		Type:             ssmtypes.ParameterTypeSecureString,
		Value:            aws.String(value),
		Version:          1,
		LastModifiedDate: &now,
	}
}

// AddError configures the fake to return an error for a specific parameter
func (f *FakeSSMClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetParameter fakes the GetParameter operation
func (f *FakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++

	paramName := aws.ToString(params.Name)
	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	data, exists := f.Parameters[paramName]
	if !exists {
		return nil, parameterNotFoundError(paramName)
	}

	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:             data.Name,
			Type:             data.Type,
			Value:            data.Value,
			Version:          data.Version,
			LastModifiedDate: data.LastModifiedDate,
		},
	}, nil
}

// PutParameter fakes the PutParameter operation
func (f *FakeSSMClient) PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PutCalls++

	paramName := aws.ToString(params.Name)
	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	data, exists := f.Parameters[paramName]
	if exists && !aws.ToBool(params.Overwrite) {
		return nil, &ssmtypes.ParameterAlreadyExists{
			Message: aws.String(fmt.Sprintf("Parameter %s already exists", paramName)),
		}
	}

	version := int64(1)
	if exists {
		version = data.Version + 1
	}
	now := time.Now()
	f.Parameters[paramName] = &ParameterData{
		Name:             params.Name,
		Type:             params.Type,
		Value:            params.Value,
		Version:          version,
		LastModifiedDate: &now,
	}

	return &ssm.PutParameterOutput{Version: version}, nil
}

// DeleteParameter fakes the DeleteParameter operation
func (f *FakeSSMClient) DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++

	paramName := aws.ToString(params.Name)
	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	if _, exists := f.Parameters[paramName]; !exists {
		return nil, parameterNotFoundError(paramName)
	}
	delete(f.Parameters, paramName)

	return &ssm.DeleteParameterOutput{}, nil
}

// DescribeParameters fakes the DescribeParameters operation, honoring
// BeginsWith name filters and NextToken paging
func (f *FakeSSMClient) DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DescribeCalls++

	if f.DescribeErr != nil {
		return nil, f.DescribeErr
	}

	names := make([]string, 0, len(f.Parameters))
	for name := range f.Parameters {
		if !matchesParameterFilters(name, params.ParameterFilters) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	start := 0
	if params.NextToken != nil {
		start, _ = strconv.Atoi(*params.NextToken)
	}

	end := len(names)
	if params.MaxResults != nil && start+int(*params.MaxResults) < end {
		end = start + int(*params.MaxResults)
	}

	out := &ssm.DescribeParametersOutput{}
	for _, name := range names[start:end] {
		data := f.Parameters[name]
		out.Parameters = append(out.Parameters, ssmtypes.ParameterMetadata{
			Name:             data.Name,
			Type:             data.Type,
			Version:          data.Version,
			LastModifiedDate: data.LastModifiedDate,
		})
	}
	if end < len(names) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func matchesParameterFilters(name string, filters []ssmtypes.ParameterStringFilter) bool {
	for _, filter := range filters {
		if aws.ToString(filter.Key) != "Name" || len(filter.Values) == 0 {
			continue
		}
		switch aws.ToString(filter.Option) {
		case "BeginsWith":
			if !strings.HasPrefix(name, filter.Values[0]) {
				return false
			}
		default:
			if name != filter.Values[0] {
				return false
			}
		}
	}
	return true
}

func parameterNotFoundError(paramName string) error {
	return &ssmtypes.ParameterNotFound{
		Message: aws.String(fmt.Sprintf("Parameter %s not found", paramName)),
	}
}
