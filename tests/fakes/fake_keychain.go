package fakes

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

// FakeKeyringClient is an in-memory test double for the OS keyring. It
// mirrors go-keyring semantics: missing items return keyring.ErrNotFound.
type FakeKeyringClient struct {
	mu sync.Mutex

	// Secrets is a map of service -> account -> value
	Secrets map[string]map[string]string

	// Errors maps account names to injected failures, returned before the
	// in-memory lookup
	Errors map[string]error

	SetCalls    int
	GetCalls    int
	DeleteCalls int
}

// NewFakeKeyringClient creates an empty fake keyring
func NewFakeKeyringClient() *FakeKeyringClient {
	return &FakeKeyringClient{
		Secrets: make(map[string]map[string]string),
		Errors:  make(map[string]error),
	}
}

// AddSecret seeds an item without counting as a Set call
func (f *FakeKeyringClient) AddSecret(service, account, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(service, account, value)
}

func (f *FakeKeyringClient) setLocked(service, account, value string) {
	if f.Secrets[service] == nil {
		f.Secrets[service] = make(map[string]string)
	}
	f.Secrets[service][account] = value
}

// Set stores an item
func (f *FakeKeyringClient) Set(service, account, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetCalls++

	if err, ok := f.Errors[account]; ok {
		return err
	}
	f.setLocked(service, account, password)
	return nil
}

// Get retrieves an item
func (f *FakeKeyringClient) Get(service, account string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++

	if err, ok := f.Errors[account]; ok {
		return "", err
	}
	if accounts, ok := f.Secrets[service]; ok {
		if value, ok := accounts[account]; ok {
			return value, nil
		}
	}
	return "", keyring.ErrNotFound
}

// Delete removes an item
func (f *FakeKeyringClient) Delete(service, account string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++

	if err, ok := f.Errors[account]; ok {
		return err
	}
	if accounts, ok := f.Secrets[service]; ok {
		if _, ok := accounts[account]; ok {
			delete(accounts, account)
			return nil
		}
	}
	return keyring.ErrNotFound
}

// KeychainAccessDeniedError returns the error shape the Secret Service
// produces when the keychain is locked
func KeychainAccessDeniedError() error {
	return errors.New("keychain access denied: user interaction required")
}

// KeychainDBusError returns the error shape seen on headless Linux hosts
// with no Secret Service daemon
func KeychainDBusError() error {
	return errors.New("dbus: couldn't determine address of session bus")
}
