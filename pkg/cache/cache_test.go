package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Minute))
	v, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))

	now = now.Add(2 * time.Minute)
	_, err = mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryCleanup(0))
	defer mc.Close()
	mc.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	_ = mc.Set(ctx, "a", []byte("1"), 0)
	_ = mc.Set(ctx, "b", []byte("2"), 0)
	_, _ = mc.Get(ctx, "a")
	_ = mc.Set(ctx, "c", []byte("3"), 0)

	_, err := mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = mc.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	buf := []byte("abc")
	_ = mc.Set(ctx, "k", buf, 0)
	buf[0] = 'x'
	v, _ := mc.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestLayeredCacheReadsThroughL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(l2)
	defer lc.Close()

	require.NoError(t, l2.Set(ctx, "k", []byte("from-l2"), 0))
	v, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from-l2", string(v))

	_ = l2.Delete(ctx, "k")
	v, err = lc.Get(ctx, "k")
	require.NoError(t, err, "promoted to L1")
	assert.Equal(t, "from-l2", string(v))

	require.NoError(t, lc.Delete(ctx, "k"))
	_, err = lc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

type brokenCache struct{ *MemoryCache }

func (*brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("conn refused") }
func (*brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("conn refused")
}

func TestLayeredCacheSurfacesL2Errors(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	lc := NewLayeredCache(&brokenCache{mc})
	_, err := lc.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Error(t, lc.Set(context.Background(), "k", []byte("v"), 0))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	type point struct{ X, Y int }
	require.NoError(t, SetJSON(ctx, mc, "p", point{1, 2}, 0))
	got, err := GetJSON[point](ctx, mc, "p")
	require.NoError(t, err)
	assert.Equal(t, point{1, 2}, got)

	_ = mc.Set(ctx, "bad", []byte("{"), 0)
	_, err = GetJSON[point](ctx, mc, "bad")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "candles:BTCUSDT:5m:100", GenerateKeyWithParams("candles", "BTCUSDT", "5m", 100))
}
