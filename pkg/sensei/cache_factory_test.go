package sensei_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

func TestNewCacheFromConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cache, err := sensei.NewCacheFromConfig(ctx, nil)
	require.NoError(t, err)
	assert.IsType(t, &sensei.MemoryCache{}, cache)

	cache, err = sensei.NewCacheFromConfig(ctx, &sensei.CacheConfig{
		Type:   sensei.CacheTypeMemory,
		Memory: &sensei.MemoryCacheConfig{MaxSize: 5},
	})
	require.NoError(t, err)
	assert.IsType(t, &sensei.MemoryCache{}, cache)

	cache, err = sensei.NewCacheFromConfig(ctx, &sensei.CacheConfig{Type: sensei.CacheTypeNone})
	require.NoError(t, err)
	assert.IsType(t, &sensei.NoOpCache{}, cache)

	_, err = sensei.NewCacheFromConfig(ctx, &sensei.CacheConfig{Type: sensei.CacheTypeNATS})
	require.ErrorIs(t, err, sensei.ErrNATSConfigRequired)

	_, err = sensei.NewCacheFromConfig(ctx, &sensei.CacheConfig{Type: "redis"})
	require.ErrorIs(t, err, sensei.ErrUnsupportedCacheType)
	assert.Contains(t, err.Error(), "redis")
}

func TestNewCacheFromConfig_Options(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cache, err := sensei.NewCacheFromConfig(ctx, &sensei.CacheConfig{
		Type:    sensei.CacheTypeMemory,
		Options: &sensei.CacheOptions{TTL: time.Minute, MaxSize: 2},
	})
	require.NoError(t, err)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, key, &sensei.CacheEntry{
			Data:      []byte(key),
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}

	kept := 0

	for _, key := range []string{"a", "b", "c"} {
		if cache.Has(ctx, key) {
			kept++
		}
	}

	assert.Equal(t, 2, kept, "MaxSize bounds the memory backend")

	entry, err := cache.Get(ctx, "c")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), entry.ExpiresAt, 5*time.Second, "TTL caps retention")

	withETags, err := sensei.NewCacheFromConfig(ctx, &sensei.CacheConfig{
		Type:    sensei.CacheTypeMemory,
		Options: &sensei.CacheOptions{TTL: time.Minute, EnableETags: true},
	})
	require.NoError(t, err)

	require.NoError(t, withETags.Set(ctx, "k", &sensei.CacheEntry{Data: []byte("k")}))

	entry, err = withETags.Get(ctx, "k")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(31*time.Minute), entry.ExpiresAt, 5*time.Second,
		"entries with ETags outlive TTL by the revalidation window")
}

func TestDefaultCacheConfig(t *testing.T) {
	t.Parallel()

	config := sensei.DefaultCacheConfig()
	assert.Equal(t, sensei.CacheTypeMemory, config.Type)
	assert.Equal(t, 1000, config.Memory.MaxSize)
	assert.Equal(t, 5*time.Minute, config.Options.TTL)
	assert.True(t, config.Options.EnableETags)
}

func TestNoOpCache(t *testing.T) {
	t.Parallel()

	cache := sensei.NewNoOpCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", &sensei.CacheEntry{Data: []byte("x")}))

	_, err := cache.Get(ctx, "k")
	require.ErrorIs(t, err, sensei.ErrCacheDisabled)
	assert.False(t, cache.Has(ctx, "k"))
	require.NoError(t, cache.Delete(ctx, "k"))
	require.NoError(t, cache.Clear(ctx))
}

func TestCacheChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l1 := sensei.NewMemoryCache(10)
	l2 := sensei.NewMemoryCache(10)
	chain := sensei.NewCacheChain(l1, l2)

	entry := &sensei.CacheEntry{Data: []byte("v"), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, l2.Set(ctx, "k", entry))
	assert.False(t, l1.Has(ctx, "k"))

	got, err := chain.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got.Data)
	assert.True(t, l1.Has(ctx, "k"), "hit in L2 backfills L1")

	require.NoError(t, chain.Set(ctx, "n", entry))
	assert.True(t, l1.Has(ctx, "n"))
	assert.True(t, l2.Has(ctx, "n"))
	assert.True(t, chain.Has(ctx, "n"))

	require.NoError(t, chain.Delete(ctx, "n"))
	assert.False(t, chain.Has(ctx, "n"))

	require.NoError(t, chain.Clear(ctx))
	_, err = chain.Get(ctx, "k")
	require.ErrorIs(t, err, sensei.ErrKeyNotFoundInAnyCache)
}

func TestNATSKVCache_ConnectFailure(t *testing.T) {
	t.Parallel()

	_, err := sensei.NewNATSKVCache(context.Background(), nil)
	require.ErrorIs(t, err, sensei.ErrNATSConfigRequired)

	_, err = sensei.NewCacheFromConfig(context.Background(), &sensei.CacheConfig{
		Type: sensei.CacheTypeNATS,
		NATS: &sensei.NATSKVConfig{URL: "nats://127.0.0.1:1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to NATS")
}

func TestNATSKVCache_Server(t *testing.T) {
	t.Parallel()

	natsURL := os.Getenv("SENSEI_TEST_NATS_URL")
	if natsURL == "" {
		t.Skip("Skipping test that requires a NATS server with JetStream (set SENSEI_TEST_NATS_URL)")
	}

	ctx := context.Background()

	cache, err := sensei.NewNATSKVCache(ctx, &sensei.NATSKVConfig{
		URL:    natsURL,
		Bucket: "sensei_partner_test",
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	defer cache.Close()

	key := "GET:/v1/partners/products:page=1"
	entry := &sensei.CacheEntry{Data: []byte(`{"data":[]}`), ExpiresAt: time.Now().Add(time.Minute), ETag: "e1"}

	require.NoError(t, cache.Set(ctx, key, entry))
	assert.True(t, cache.Has(ctx, key))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, entry.Data, got.Data)
	assert.Equal(t, "e1", got.ETag)

	require.NoError(t, cache.Delete(ctx, key))
	assert.False(t, cache.Has(ctx, key))

	require.NoError(t, cache.Set(ctx, key, entry))
	require.NoError(t, cache.Clear(ctx))
	assert.False(t, cache.Has(ctx, key))
}
