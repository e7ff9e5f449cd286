package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeKeyVaultClient is an in-memory implementation of the Key Vault client
// interface used by the azure.keyvault store. It satisfies
// stores.KeyVaultClientAPI.
type FakeKeyVaultClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their data
	Secrets map[string]*AzureSecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// ListErr, when set, is returned from the list pager
	ListErr error

	// Call counters, used to observe cache behavior
	GetCalls    int
	SetCalls    int
	DeleteCalls int
	ListCalls   int

	versionCounter int
}

// AzureSecretData holds the data for a fake Key Vault secret
type AzureSecretData struct {
	Value      *string
	ID         *azsecrets.ID
	Attributes *azsecrets.SecretAttributes
}

// NewFakeKeyVaultClient creates a new fake Key Vault client
func NewFakeKeyVaultClient() *FakeKeyVaultClient {
	return &FakeKeyVaultClient{
		Secrets: make(map[string]*AzureSecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretString seeds a secret without counting as a SetSecret call
func (f *FakeKeyVaultClient) AddSecretString(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = f.newSecretData(name, value)
}

// AddError configures the fake to return an error for a specific secret
func (f *FakeKeyVaultClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

func (f *FakeKeyVaultClient) newSecretData(name, value string) *AzureSecretData {
	f.versionCounter++
	now := time.Now()
	id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s/%d", name, f.versionCounter))
	return &AzureSecretData{
		Value: to.Ptr(value),
		ID:    &id,
		Attributes: &azsecrets.SecretAttributes{
			Enabled: to.Ptr(true),
			Created: &now,
			Updated: &now,
		},
	}
}

// GetSecret fakes the GetSecret operation
func (f *FakeKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++

	if err, exists := f.Errors[name]; exists {
		return azsecrets.GetSecretResponse{}, err
	}

	data, exists := f.Secrets[name]
	if !exists {
		return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
	}

	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:         data.ID,
			Value:      data.Value,
			Attributes: data.Attributes,
		},
	}, nil
}

// SetSecret fakes the SetSecret operation, assigning a fresh version
func (f *FakeKeyVaultClient) SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetCalls++

	if err, exists := f.Errors[name]; exists {
		return azsecrets.SetSecretResponse{}, err
	}

	var value string
	if parameters.Value != nil {
		value = *parameters.Value
	}
	data := f.newSecretData(name, value)
	f.Secrets[name] = data

	return azsecrets.SetSecretResponse{
		Secret: azsecrets.Secret{
			ID:         data.ID,
			Value:      data.Value,
			Attributes: data.Attributes,
		},
	}, nil
}

// DeleteSecret fakes the DeleteSecret operation
func (f *FakeKeyVaultClient) DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++

	if err, exists := f.Errors[name]; exists {
		return azsecrets.DeleteSecretResponse{}, err
	}

	data, exists := f.Secrets[name]
	if !exists {
		return azsecrets.DeleteSecretResponse{}, AzureNotFoundError(name)
	}
	delete(f.Secrets, name)

	return azsecrets.DeleteSecretResponse{
		DeletedSecret: azsecrets.DeletedSecret{
			ID:    data.ID,
			Value: data.Value,
		},
	}, nil
}

// NewListSecretPropertiesPager fakes listing; all secrets come back in a
// single page.
func (f *FakeKeyVaultClient) NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse] {
	return runtime.NewPager(runtime.PagingHandler[azsecrets.ListSecretPropertiesResponse]{
		More: func(page azsecrets.ListSecretPropertiesResponse) bool {
			return false
		},
		Fetcher: func(ctx context.Context, page *azsecrets.ListSecretPropertiesResponse) (azsecrets.ListSecretPropertiesResponse, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.ListCalls++

			if f.ListErr != nil {
				return azsecrets.ListSecretPropertiesResponse{}, f.ListErr
			}

			var props []*azsecrets.SecretProperties
			for _, data := range f.Secrets {
				props = append(props, &azsecrets.SecretProperties{
					ID:         data.ID,
					Attributes: data.Attributes,
				})
			}
			return azsecrets.ListSecretPropertiesResponse{
				SecretPropertiesListResult: azsecrets.SecretPropertiesListResult{
					Value: props,
				},
			}, nil
		},
	})
}

// AzureNotFoundError creates a Key Vault not-found error
func AzureNotFoundError(secretName string) error {
	return &azcore.ResponseError{
		StatusCode: 404,
		ErrorCode:  "SecretNotFound",
	}
}

// AzureForbiddenError creates a Key Vault forbidden error
func AzureForbiddenError() error {
	return &azcore.ResponseError{
		StatusCode: 403,
		ErrorCode:  "Forbidden",
	}
}

// AzureUnauthorizedError creates a Key Vault unauthorized error
func AzureUnauthorizedError() error {
	return &azcore.ResponseError{
		StatusCode: 401,
		ErrorCode:  "Unauthorized",
	}
}

// AzureThrottledError creates a Key Vault throttled error
func AzureThrottledError() error {
	return &azcore.ResponseError{
		StatusCode: 429,
		ErrorCode:  "TooManyRequests",
	}
}
