package stores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/vaultdoor/pkg/store"
)

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()

	store.RunContractTests(t, store.ContractTest{
		NewStore: func(t *testing.T) store.Store {
			return NewMemoryStore("memory", nil)
		},
	})
}

func TestMemoryStoreSeededValues(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore("memory", map[string]interface{}{
		"values": map[string]interface{}{
			"db-pass": "hunter2",
			"api-key": "abc123",
			"ignored": 42, // non-string values are skipped
		},
	})

	ctx := context.Background()

	val, err := m.Get(ctx, "db-pass")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", val.Value)
	assert.Equal(t, "1", val.Version)

	names, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"api-key", "db-pass"}, names)
}

func TestMemoryStoreVersionCounter(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore("memory", nil)
	ctx := context.Background()

	first, err := m.Set(ctx, "rotating", "v1")
	require.NoError(t, err)
	assert.Equal(t, "1", first.Version)

	second, err := m.Set(ctx, "rotating", "v2")
	require.NoError(t, err)
	assert.Equal(t, "2", second.Version)

	got, err := m.Get(ctx, "rotating")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Value)
	assert.Equal(t, "2", got.Version)
}

func TestMemoryStoreListIsSorted(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore("memory", nil)
	ctx := context.Background()

	for _, name := range []string{"zulu", "alpha", "mike"} {
		_, err := m.Set(ctx, name, "v")
		require.NoError(t, err)
	}

	names, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mike", "zulu"}, names)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore("memory", nil)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				_, _ = m.Set(ctx, "shared", "value")
				_, _ = m.Get(ctx, "shared")
				_, _ = m.List(ctx)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	got, err := m.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "value", got.Value)
}
