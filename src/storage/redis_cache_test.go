package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	latest      *models.MTick
	latestErr   error
	latestCalls int
	history     []models.MTick
}

func (s *stubStore) HistoricalTicks(context.Context, string, models.MDate) ([]models.MTick, error) {
	return s.history, nil
}

func (s *stubStore) LatestTick(context.Context, string, models.MDate) (*models.MTick, error) {
	s.latestCalls++
	return s.latest, s.latestErr
}

func newTestCache(t *testing.T, store *stubStore) (*CachedTickSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCachedTickSource(store, client, time.Hour, logger.NewNop())
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestCachedTickSource_MissFallsBackToStore(t *testing.T) {
	stored := tick(t, "600000", "2025-03-14 10:00:00.000", "10.50")
	store := &stubStore{latest: &stored}
	cache, _ := newTestCache(t, store)

	got, err := cache.LatestTick(context.Background(), "600000", friday)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14 10:00:00.000", got.Time.String())
	assert.Equal(t, 1, store.latestCalls)
}

func TestCachedTickSource_HitSkipsStore(t *testing.T) {
	store := &stubStore{}
	cache, mr := newTestCache(t, store)
	ctx := context.Background()

	fresh := tick(t, "600000", "2025-03-14 10:00:04.000", "10.55")
	require.NoError(t, cache.PutLatest(ctx, &fresh))
	assert.True(t, mr.Exists("tick:latest:600000:2025-03-14"))

	got, err := cache.LatestTick(ctx, "600000", friday)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-03-14 10:00:04.000", got.Time.String())
	assert.Equal(t, "10.55", got.Price.Decimal.String())
	assert.Equal(t, 0, store.latestCalls)

	assert.Greater(t, mr.TTL("tick:latest:600000:2025-03-14"), time.Duration(0))
}

func TestCachedTickSource_PutLatestKeepsNewest(t *testing.T) {
	cache, _ := newTestCache(t, &stubStore{})
	ctx := context.Background()

	newer := tick(t, "600000", "2025-03-14 10:00:04.000", "10.55")
	older := tick(t, "600000", "2025-03-14 10:00:01.000", "10.52")
	require.NoError(t, cache.PutLatest(ctx, &newer))
	require.NoError(t, cache.PutLatest(ctx, &older))
	require.NoError(t, cache.PutLatest(ctx, &models.MTick{TsCode: "600000"}))

	got, err := cache.LatestTick(ctx, "600000", friday)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14 10:00:04.000", got.Time.String())
}

func TestCachedTickSource_RedisDownFallsBack(t *testing.T) {
	stored := tick(t, "600000", "2025-03-14 10:00:00.000", "10.50")
	store := &stubStore{latest: &stored}
	cache, mr := newTestCache(t, store)
	mr.Close()

	got, err := cache.LatestTick(context.Background(), "600000", friday)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, 1, store.latestCalls)
}

func TestCachedTickSource_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	cache, _ := newTestCache(t, &stubStore{latestErr: boom})

	_, err := cache.LatestTick(context.Background(), "600000", friday)
	assert.ErrorIs(t, err, boom)
}
