package facade_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/vaultdoor/internal/facade"
	"github.com/systmms/vaultdoor/pkg/store"
	"github.com/systmms/vaultdoor/tests/fakes"
	"github.com/systmms/vaultdoor/tests/testutil"
)

// recordingMetrics counts recorder callbacks for assertions.
type recordingMetrics struct {
	mu        sync.Mutex
	hits      int
	misses    int
	evictions int
	entries   int
	ops       map[string]int // "store/op/status" -> count
}

func (r *recordingMetrics) CacheHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *recordingMetrics) CacheMiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
}

func (r *recordingMetrics) CacheEviction() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions++
}

func (r *recordingMetrics) CacheEntries(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = count
}

func (r *recordingMetrics) StoreOperation(storeName, op, status string, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]int)
	}
	r.ops[storeName+"/"+op+"/"+status]++
}

func (r *recordingMetrics) opCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[key]
}

func TestFacadeSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	f := facade.New(backend)
	ctx := context.Background()

	sv, err := f.Set(ctx, "db-pass", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", sv.Value)
	assert.Equal(t, "1", sv.Version)

	got, err := f.Get(ctx, "db-pass")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got.Value)

	// The write populated the cache, so the read never hit the backend
	assert.Equal(t, 0, backend.CallCount("Get"))
}

func TestFacadeGetPopulatesCache(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary").
		WithSecret("db-pass", store.SecretValue{Value: "hunter2"})
	f := facade.New(backend)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := f.Get(ctx, "db-pass")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", got.Value)
	}

	assert.Equal(t, 1, backend.CallCount("Get"))
}

func TestFacadeGetMissingIsNotFound(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	f := facade.New(backend)
	ctx := context.Background()

	_, err := f.Get(ctx, "nope")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))

	// Failures are not cached
	_, err = f.Get(ctx, "nope")
	require.Error(t, err)
	assert.Equal(t, 2, backend.CallCount("Get"))
}

func TestFacadeOverwriteServesLatest(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	f := facade.New(backend)
	ctx := context.Background()

	_, err := f.Set(ctx, "db-pass", "v1")
	require.NoError(t, err)
	_, err = f.Set(ctx, "db-pass", "v2")
	require.NoError(t, err)

	got, err := f.Get(ctx, "db-pass")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Value)
	assert.Equal(t, "2", got.Version)
	assert.Equal(t, 0, backend.CallCount("Get"))
}

func TestFacadeListBypassesCache(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	f := facade.New(backend)
	ctx := context.Background()

	_, err := f.Set(ctx, "api-key", "abc")
	require.NoError(t, err)
	_, err = f.Set(ctx, "db-pass", "def")
	require.NoError(t, err)

	names, err := f.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"api-key", "db-pass"}, names)

	_, err = f.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.CallCount("List"))
}

func TestFacadeDeleteDropsCacheEntry(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	f := facade.New(backend)
	ctx := context.Background()

	_, err := f.Set(ctx, "db-pass", "hunter2")
	require.NoError(t, err)

	require.NoError(t, f.Delete(ctx, "db-pass"))
	assert.False(t, backend.Has("db-pass"))
	assert.Equal(t, 0, f.CacheLen())

	_, err = f.Get(ctx, "db-pass")
	assert.True(t, store.IsNotFound(err))
	assert.Equal(t, 1, backend.CallCount("Get"))
}

func TestFacadeDeleteMissingIsNotFound(t *testing.T) {
	t.Parallel()

	f := facade.New(fakes.NewFakeStore("primary"))

	err := f.Delete(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestFacadeRejectsInvalidNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		secretName string
	}{
		{name: "empty_name", secretName: ""},
		{name: "name_too_long", secretName: strings.Repeat("a", 128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := fakes.NewFakeStore("primary")
			f := facade.New(backend)

			_, err := f.Set(context.Background(), tt.secretName, "value")
			require.Error(t, err)
			assert.True(t, store.IsInvalidName(err))
			assert.Equal(t, 0, backend.CallCount("Set"))
		})
	}
}

func TestFacadeNameAtMaxLength(t *testing.T) {
	t.Parallel()

	f := facade.New(fakes.NewFakeStore("primary"))

	_, err := f.Set(context.Background(), strings.Repeat("a", 127), "value")
	require.NoError(t, err)
}

func TestFacadeCacheEviction(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	metrics := &recordingMetrics{}
	f := facade.New(backend, facade.WithCacheCapacity(2), facade.WithMetrics(metrics))
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c"} {
		_, err := f.Set(ctx, name, fmt.Sprintf("v%d", i))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, f.CacheLen())
	assert.Equal(t, 1, metrics.evictions)

	// "a" was evicted, so reading it goes to the backend
	_, err := f.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.CallCount("Get"))

	// "c" is still cached
	_, err = f.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.CallCount("Get"))
}

func TestFacadeEvictionFollowsRecency(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	f := facade.New(backend, facade.WithCacheCapacity(2))
	ctx := context.Background()

	_, err := f.Set(ctx, "a", "1")
	require.NoError(t, err)
	_, err = f.Set(ctx, "b", "2")
	require.NoError(t, err)

	// Touch "a" so "b" becomes the eviction candidate
	_, err = f.Get(ctx, "a")
	require.NoError(t, err)

	_, err = f.Set(ctx, "c", "3")
	require.NoError(t, err)

	_, err = f.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, backend.CallCount("Get"))

	_, err = f.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.CallCount("Get"))
}

func TestFacadeErrorsPassThrough(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary").
		WithError("api-key", store.AccessDeniedError{Store: "primary", Message: "access denied"}).
		WithOperationError("list", store.UnavailableError{Store: "primary", Err: fmt.Errorf("connection refused")})
	f := facade.New(backend)
	ctx := context.Background()

	_, err := f.Get(ctx, "api-key")
	assert.True(t, store.IsAccessDenied(err))

	_, err = f.List(ctx)
	assert.True(t, store.IsUnavailable(err))
}

func TestFacadeValidateDelegates(t *testing.T) {
	t.Parallel()

	healthy := facade.New(fakes.NewFakeStore("primary"))
	require.NoError(t, healthy.Validate(context.Background()))

	broken := facade.New(fakes.NewFakeStore("primary").
		WithOperationError("validate", store.UnavailableError{Store: "primary", Err: fmt.Errorf("dial tcp: connection refused")}))
	err := broken.Validate(context.Background())
	require.Error(t, err)
	assert.True(t, store.IsUnavailable(err))
}

func TestFacadeRecordsMetrics(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	metrics := &recordingMetrics{}
	f := facade.New(backend, facade.WithMetrics(metrics))
	ctx := context.Background()

	_, err := f.Set(ctx, "db-pass", "hunter2")
	require.NoError(t, err)

	_, err = f.Get(ctx, "db-pass")
	require.NoError(t, err)

	_, err = f.Get(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.entries)
	assert.Equal(t, 1, metrics.opCount("primary/set/ok"))
	assert.Equal(t, 1, metrics.opCount("primary/get/not_found"))
}

func TestFacadeStoreName(t *testing.T) {
	t.Parallel()

	f := facade.New(fakes.NewFakeStore("primary"))
	assert.Equal(t, "primary", f.StoreName())
}

func TestFacadeConcurrentAccess(t *testing.T) {
	t.Parallel()

	backend := fakes.NewFakeStore("primary")
	f := facade.New(backend, facade.WithCacheCapacity(4))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("secret-%d", i%4)
			for j := 0; j < 25; j++ {
				_, _ = f.Set(ctx, name, fmt.Sprintf("v%d", j))
				_, _ = f.Get(ctx, name)
			}
		}(i)
	}
	wg.Wait()

	got, err := f.Get(ctx, "secret-0")
	require.NoError(t, err)
	assert.Equal(t, "v24", got.Value)
}

func TestFacadeLogsRedactSecretNames(t *testing.T) {
	t.Parallel()

	logs := testutil.NewCapturedLogger(t)
	backend := fakes.NewFakeStore("primary")
	f := facade.New(backend, facade.WithLogger(logs.Logger))
	ctx := context.Background()

	_, err := f.Set(ctx, "db-password", "hunter2-plaintext")
	require.NoError(t, err)
	_, err = f.Get(ctx, "db-password")
	require.NoError(t, err)
	require.NoError(t, f.Delete(ctx, "db-password"))

	logs.AssertRedacted(t, "db-password")
	logs.AssertNotContains(t, "hunter2-plaintext")
}
