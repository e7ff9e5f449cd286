package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/systmms/vaultdoor/internal/stores"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// FakeSecretManagerClient is an in-memory implementation of the Secret
// Manager client interface used by the GCP store
type FakeSecretManagerClient struct {
	mu sync.Mutex

	// Secrets maps full resource names (projects/P/secrets/S) to their data
	Secrets map[string]*GCPSecretData
	// Versions maps version resource names (projects/P/secrets/S/versions/V)
	// to their data; the "latest" key aliases the newest version
	Versions map[string]*GCPSecretVersionData
	// Errors maps short secret names to errors to return
	Errors map[string]error
	// ListErr makes the iterator returned by ListSecrets fail when set
	ListErr error

	// Call counters
	AccessCalls     int
	CreateCalls     int
	AddVersionCalls int
	DeleteCalls     int
	ListCalls       int
}

// GCPSecretData holds the data for a fake GCP secret
type GCPSecretData struct {
	Name           string
	CreateTime     *timestamppb.Timestamp
	Labels         map[string]string
	Replication    *secretmanagerpb.Replication
	versionCounter int
}

// GCPSecretVersionData holds version-specific data for a fake GCP secret
type GCPSecretVersionData struct {
	Name       string
	State      secretmanagerpb.SecretVersion_State
	CreateTime *timestamppb.Timestamp
	Data       []byte
}

// NewFakeSecretManagerClient creates a new fake GCP Secret Manager client
func NewFakeSecretManagerClient() *FakeSecretManagerClient {
	return &FakeSecretManagerClient{
		Secrets:  make(map[string]*GCPSecretData),
		Versions: make(map[string]*GCPSecretVersionData),
		Errors:   make(map[string]error),
	}
}

// AddSecretString seeds a secret with a single version
func (f *FakeSecretManagerClient) AddSecretString(projectID, secretName, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	secretResource := fmt.Sprintf("projects/%s/secrets/%s", projectID, secretName)
	data := f.ensureSecretLocked(secretResource)
	f.addVersionLocked(secretResource, data, []byte(value))
}

// AddError configures the fake to return an error for a specific secret
func (f *FakeSecretManagerClient) AddError(secretName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[secretName] = err
}

func (f *FakeSecretManagerClient) ensureSecretLocked(secretResource string) *GCPSecretData {
	data, exists := f.Secrets[secretResource]
	if !exists {
		data = &GCPSecretData{
			Name:       secretResource,
			CreateTime: timestamppb.New(time.Now()),
			Labels:     make(map[string]string),
		}
		f.Secrets[secretResource] = data
	}
	return data
}

// addVersionLocked attaches a new version and refreshes the "latest" alias.
// The alias keeps the concrete version's resource name, matching how the
// real API resolves "latest".
func (f *FakeSecretManagerClient) addVersionLocked(secretResource string, data *GCPSecretData, payload []byte) *GCPSecretVersionData {
	data.versionCounter++
	version := &GCPSecretVersionData{
		Name:       fmt.Sprintf("%s/versions/%d", secretResource, data.versionCounter),
		State:      secretmanagerpb.SecretVersion_ENABLED,
		CreateTime: timestamppb.New(time.Now()),
		Data:       payload,
	}
	f.Versions[version.Name] = version
	f.Versions[secretResource+"/versions/latest"] = version
	return version
}

// AccessSecretVersion fakes the AccessSecretVersion operation
func (f *FakeSecretManagerClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AccessCalls++

	if err, exists := f.Errors[secretNameFromResource(req.Name)]; exists {
		return nil, err
	}

	version, exists := f.Versions[req.Name]
	if !exists {
		return nil, status.Errorf(codes.NotFound, "Secret version %s not found", req.Name)
	}

	return &secretmanagerpb.AccessSecretVersionResponse{
		Name: version.Name,
		Payload: &secretmanagerpb.SecretPayload{
			Data: version.Data,
		},
	}, nil
}

// CreateSecret fakes the CreateSecret operation
func (f *FakeSecretManagerClient) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++

	if err, exists := f.Errors[req.SecretId]; exists {
		return nil, err
	}

	secretResource := fmt.Sprintf("%s/secrets/%s", req.Parent, req.SecretId)
	if _, exists := f.Secrets[secretResource]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "Secret %s already exists", secretResource)
	}

	data := &GCPSecretData{
		Name:        secretResource,
		CreateTime:  timestamppb.New(time.Now()),
		Labels:      make(map[string]string),
		Replication: req.GetSecret().GetReplication(),
	}
	f.Secrets[secretResource] = data

	return &secretmanagerpb.Secret{
		Name:        data.Name,
		CreateTime:  data.CreateTime,
		Replication: data.Replication,
	}, nil
}

// AddSecretVersion fakes the AddSecretVersion operation
func (f *FakeSecretManagerClient) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AddVersionCalls++

	if err, exists := f.Errors[secretNameFromResource(req.Parent)]; exists {
		return nil, err
	}

	data, exists := f.Secrets[req.Parent]
	if !exists {
		return nil, status.Errorf(codes.NotFound, "Secret %s not found", req.Parent)
	}

	version := f.addVersionLocked(req.Parent, data, req.Payload.Data)

	return &secretmanagerpb.SecretVersion{
		Name:       version.Name,
		CreateTime: version.CreateTime,
		State:      version.State,
	}, nil
}

// DeleteSecret fakes the DeleteSecret operation
func (f *FakeSecretManagerClient) DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++

	if err, exists := f.Errors[secretNameFromResource(req.Name)]; exists {
		return err
	}

	if _, exists := f.Secrets[req.Name]; !exists {
		return status.Errorf(codes.NotFound, "Secret %s not found", req.Name)
	}

	delete(f.Secrets, req.Name)
	for versionName := range f.Versions {
		if strings.HasPrefix(versionName, req.Name+"/versions/") {
			delete(f.Versions, versionName)
		}
	}
	return nil
}

// ListSecrets fakes the ListSecrets operation
func (f *FakeSecretManagerClient) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) stores.SecretIterator {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++

	if f.ListErr != nil {
		return &FakeSecretIterator{err: f.ListErr}
	}

	prefix := req.Parent + "/secrets/"
	names := make([]string, 0, len(f.Secrets))
	for name := range f.Secrets {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	secrets := make([]*secretmanagerpb.Secret, 0, len(names))
	for _, name := range names {
		data := f.Secrets[name]
		secrets = append(secrets, &secretmanagerpb.Secret{
			Name:        data.Name,
			CreateTime:  data.CreateTime,
			Labels:      data.Labels,
			Replication: data.Replication,
		})
	}

	return &FakeSecretIterator{secrets: secrets}
}

// secretNameFromResource extracts the short secret name from a full
// projects/P/secrets/S[/versions/V] resource name
func secretNameFromResource(resourceName string) string {
	parts := strings.Split(resourceName, "/")
	for i, part := range parts {
		if part == "secrets" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return resourceName
}

// FakeSecretIterator is an in-memory implementation of the secret iterator
type FakeSecretIterator struct {
	secrets []*secretmanagerpb.Secret
	index   int
	err     error
}

// Next returns the next secret in the iteration
func (it *FakeSecretIterator) Next() (*secretmanagerpb.Secret, error) {
	if it.err != nil {
		return nil, it.err
	}

	if it.index >= len(it.secrets) {
		return nil, iterator.Done
	}

	secret := it.secrets[it.index]
	it.index++
	return secret, nil
}

// GCP error helpers

// GCPNotFoundError creates a GCP not found error
func GCPNotFoundError(resourceName string) error {
	return status.Errorf(codes.NotFound, "Resource %s not found", resourceName)
}

// GCPPermissionDeniedError creates a GCP permission denied error
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GCPUnauthenticatedError creates a GCP unauthenticated error
func GCPUnauthenticatedError(message string) error {
	return status.Error(codes.Unauthenticated, message)
}

// GCPResourceExhaustedError creates a GCP resource exhausted (throttled) error
func GCPResourceExhaustedError() error {
	return status.Errorf(codes.ResourceExhausted, "Quota exceeded")
}
