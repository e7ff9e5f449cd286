// Package secure wraps memguard so the API token rests encrypted in memory
// instead of sitting in a plain Go string for the process lifetime.
package secure

import (
	"crypto/subtle"
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer holds sensitive bytes encrypted at rest (XSalsa20Poly1305 via
// memguard.Enclave) with mlock applied where the platform allows it.
type Buffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed makes Destroy idempotent and blocks use-after-destroy
	destroyed bool
}

// NewBuffer copies data into a protected enclave. The caller keeps ownership
// of data and should zero it after the call.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{
		enclave: memguard.NewEnclave(data),
	}
}

// Open decrypts the buffer into a locked region. The caller MUST call
// Destroy() on the returned LockedBuffer when done.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// Equal opens the buffer and compares it to candidate in constant time.
// The plaintext is wiped before returning.
func (b *Buffer) Equal(candidate []byte) (bool, error) {
	locked, err := b.Open()
	if err != nil {
		return false, err
	}
	defer locked.Destroy()

	return subtle.ConstantTimeCompare(locked.Bytes(), candidate) == 1, nil
}

// Destroy marks the buffer unusable. The encrypted enclave data is left for
// garbage collection; call memguard.Purge() at process exit for a full wipe.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
