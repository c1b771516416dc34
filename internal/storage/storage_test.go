package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/pillbox/internal/models"
)

func sampleInfo(name string) *models.DrugInfo {
	return &models.DrugInfo{
		Name:           name,
		Company:        "한국얀센",
		Classification: "일반의약품",
		Ingredients:    "아세트아미노펜",
		Efficacy:       "해열 및 진통",
		Usage:          "1회 1~2정, 1일 3회 식후",
		Caution:        "간 질환 주의",
		Storage:        "실온 보관",
	}
}

// exerciseCache runs the behaviour every backend must share.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "타이레놀", sampleInfo("타이레놀정500mg"), 0))
	got, err := c.Get(ctx, "타이레놀")
	require.NoError(t, err)
	assert.Equal(t, sampleInfo("타이레놀정500mg"), got)

	updated := sampleInfo("타이레놀")
	updated.Company = "다른회사"
	require.NoError(t, c.Set(ctx, "타이레놀", updated, time.Hour))
	got, err = c.Get(ctx, "타이레놀")
	require.NoError(t, err)
	assert.Equal(t, "다른회사", got.Company)

	require.NoError(t, c.Set(ctx, "게보린", sampleInfo("게보린"), 0))
	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, c.Delete(ctx, "게보린"))
	_, err = c.Get(ctx, "게보린")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "nil", nil, 0))
	_, err = c.Get(ctx, "nil")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache(10))
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)
	require.NoError(t, c.Set(ctx, "a", sampleInfo("a"), 0))
	require.NoError(t, c.Set(ctx, "b", sampleInfo("b"), 0))
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", sampleInfo("c"), 0))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache(4)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", sampleInfo("a"), time.Minute))
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	n, _ := c.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(4)
	require.NoError(t, c.Set(ctx, "a", sampleInfo("a"), 0))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	got.Name = "mutated"
	again, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Name)
}

func TestSQLiteCache(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	defer c.Close()
	exerciseCache(t, c)
}

func TestSQLiteCache_ExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "short", sampleInfo("short"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", sampleInfo("forever"), 0))

	now = now.Add(time.Hour)
	purged, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestSQLiteCache_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := NewSQLiteCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "게보린", sampleInfo("게보린"), 0))
	require.NoError(t, c.Close())

	c, err = NewSQLiteCache(path)
	require.NoError(t, err)
	defer c.Close()
	got, err := c.Get(ctx, "게보린")
	require.NoError(t, err)
	assert.Equal(t, "게보린", got.Name)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), mr.Addr(), WithPrefix("test:"))
	require.NoError(t, err)
	defer c.Close()
	exerciseCache(t, c)
	assert.True(t, mr.Exists("test:타이레놀"))
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()

	require.NoError(t, c.Set(ctx, "a", sampleInfo("a"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("pillbox:druginfo:a"))

	mr.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedisCache(context.Background(), addr)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "타이레놀정500mg", Key(" 타이레놀정 500MG "))
	assert.Equal(t, "", Key("   "))
}
