package secure

import (
	"bytes"
	"testing"
)

func TestNewBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "creates enclave from bytes",
			data: []byte("my-secret-password"),
		},
		{
			name: "handles binary data",
			data: []byte{0x00, 0xFF, 0x10, 0x20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := NewBuffer(tt.data)
			if buf == nil {
				t.Fatal("NewBuffer() returned nil")
			}
			buf.Destroy()
		})
	}
}

func TestBufferOpenRoundTrip(t *testing.T) {
	t.Parallel()

	// memguard may zero the source slice, so keep a copy for comparison
	secretStr := "super-secret-data"
	secret := []byte(secretStr)
	expected := []byte(secretStr)

	buf := NewBuffer(secret)
	defer buf.Destroy()

	locked, err := buf.Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer locked.Destroy()

	if !bytes.Equal(locked.Bytes(), expected) {
		t.Error("Open() did not return the original plaintext")
	}
}

func TestBufferEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		held      string
		candidate string
		want      bool
	}{
		{
			name:      "matching_token",
			held:      "demo-token-123",
			candidate: "demo-token-123",
			want:      true,
		},
		{
			name:      "mismatched_token",
			held:      "demo-token-123",
			candidate: "demo-token-124",
			want:      false,
		},
		{
			name:      "length_mismatch",
			held:      "demo-token-123",
			candidate: "demo",
			want:      false,
		},
		{
			name:      "empty_candidate",
			held:      "demo-token-123",
			candidate: "",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := NewBuffer([]byte(tt.held))
			defer buf.Destroy()

			got, err := buf.Equal([]byte(tt.candidate))
			if err != nil {
				t.Fatalf("Equal() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Equal(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestBufferDestroyIdempotent(t *testing.T) {
	t.Parallel()

	buf := NewBuffer([]byte("secret"))
	buf.Destroy()
	buf.Destroy() // second call must not panic

	locked, err := buf.Open()
	if err != nil {
		t.Fatalf("Open() after Destroy failed: %v", err)
	}
	defer locked.Destroy()

	if len(locked.Bytes()) != 0 {
		t.Error("Open() after Destroy should return an empty buffer")
	}
}
