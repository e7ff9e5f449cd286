// Package fakes provides test doubles for vaultdoor's external client
// interfaces.
//
// This package contains fake implementations of SDK client interfaces that
// allow unit testing of store backends without real service dependencies.
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	fake := fakes.NewFakeKeyringClient()
//	fake.AddSecret("vaultdoor", "api-key", "secret123")
//	st, err := stores.NewKeychainStore("demo", nil, stores.WithKeyringClient(fake))
//	// Test store methods...
package fakes
