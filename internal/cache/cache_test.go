package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingCache is an L2 that rejects every call
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, &CacheError{Operation: "get", Key: key, Err: assert.AnError}
}

func (failingCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return &CacheError{Operation: "set", Key: key, Err: assert.AnError}
}

func (failingCache) Delete(ctx context.Context, key string) error {
	return &CacheError{Operation: "delete", Key: key, Err: assert.AnError}
}

func (failingCache) Exists(ctx context.Context, key string) (bool, error) {
	return false, &CacheError{Operation: "exists", Key: key, Err: assert.AnError}
}

func (failingCache) Close() error                     { return nil }
func (failingCache) Health(ctx context.Context) error { return assert.AnError }

func TestMemoryCache_Basic(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10)
	defer cache.Close()

	require.NoError(t, cache.Set(ctx, "key1", []byte("value1"), time.Hour))

	value, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), value)

	exists, err := cache.Exists(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Missing keys are a nil value, not an error
	value, err = cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10)

	require.NoError(t, cache.Set(ctx, "key1", []byte("value1"), time.Hour))
	require.NoError(t, cache.Delete(ctx, "key1"))

	exists, err := cache.Exists(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10)

	require.NoError(t, cache.Set(ctx, "short", []byte("v"), time.Millisecond))
	require.NoError(t, cache.Set(ctx, "forever", []byte("v"), 0))
	time.Sleep(5 * time.Millisecond)

	value, err := cache.Get(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = cache.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(2)

	require.NoError(t, cache.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, cache.Set(ctx, "c", []byte("3"), time.Hour))

	assert.Len(t, cache.items, 2)
	value, _ := cache.Get(ctx, "a")
	assert.Nil(t, value, "entry closest to expiry is evicted first")

	// Overwriting an existing key never evicts
	require.NoError(t, cache.Set(ctx, "b", []byte("22"), time.Hour))
	assert.Len(t, cache.items, 2)
}

func TestMultiLevelCache_PopulatesL1FromL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache(10)
	cache := NewMultiLevelCache(l2, 10)

	require.NoError(t, l2.Set(ctx, "key", []byte("from-l2"), time.Hour))

	value, err := cache.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-l2"), value)

	l1Value, _ := cache.l1.Get(ctx, "key")
	assert.Equal(t, []byte("from-l2"), l1Value)
}

func TestMultiLevelCache_SetAndDelete(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache(10)
	cache := NewMultiLevelCache(l2, 10)

	require.NoError(t, cache.Set(ctx, "key", []byte("v"), time.Hour))

	l2Value, _ := l2.Get(ctx, "key")
	assert.Equal(t, []byte("v"), l2Value)

	require.NoError(t, cache.Delete(ctx, "key"))
	exists, err := cache.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMultiLevelCache_L2Failure(t *testing.T) {
	ctx := context.Background()
	cache := NewMultiLevelCache(failingCache{}, 10)

	err := cache.Set(ctx, "key", []byte("v"), time.Hour)
	var cacheErr *CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, "set", cacheErr.Operation)

	// Nothing was written to L1 either
	_, err = cache.Get(ctx, "key")
	assert.Error(t, err)
	assert.Error(t, cache.Health(ctx))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var out payload
	found, err := GetJSON(ctx, cache, "p", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, cache, "p", payload{Name: "x", Count: 3}, time.Minute))

	found, err = GetJSON(ctx, cache, "p", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "x", Count: 3}, out)

	require.NoError(t, cache.Set(ctx, "bad", []byte("{not json"), time.Minute))
	_, err = GetJSON(ctx, cache, "bad", &out)
	var cacheErr *CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, "decode", cacheErr.Operation)
}

func TestNew_WithoutValkey(t *testing.T) {
	cache, err := New("", 5)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, cache)
}

func TestParseValkeyURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		db       int
		wantErr  bool
	}{
		{"plain", "redis://localhost:6379", "localhost:6379", "", 0, false},
		{"password", "redis://:secret@cache:6379", "cache:6379", "secret", 0, false},
		{"database", "valkey://cache:6379/2", "cache:6379", "", 2, false},
		{"missing host", "redis://", "", "", 0, true},
		{"bad database", "redis://cache:6379/x", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, password, db, err := parseValkeyURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, addr)
			assert.Equal(t, tt.password, password)
			assert.Equal(t, tt.db, db)
		})
	}
}

func TestCacheError(t *testing.T) {
	err := &CacheError{Operation: "get", Key: "test-key", Err: assert.AnError}

	assert.Equal(t, "cache get failed for key 'test-key': assert.AnError general error for testing", err.Error())
	assert.Equal(t, assert.AnError, err.Unwrap())
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	ctx := context.Background()
	cache := NewMemoryCache(1000)
	data := []byte("benchmark test data")

	for i := 0; i < 1000; i++ {
		cache.Set(ctx, "key"+string(rune(i)), data, time.Hour)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(ctx, "key"+string(rune(i%1000)))
	}
}
