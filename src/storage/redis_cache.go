package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/metrics"
	"market-stream/src/models"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// -----------------------------------------------------------------------------

// CachedTickSource serves LatestTick from a Redis copy of the newest ingested
// tick per instrument and trading date, falling back to the store on a miss.
// History always comes from the store.
type CachedTickSource struct {
	store      interfaces.ITickSource
	client     RedisClient
	expiration time.Duration
	logger     *logger.Logger
}

var _ interfaces.ITickSource = (*CachedTickSource)(nil)

func NewCachedTickSource(store interfaces.ITickSource, client RedisClient, expiration time.Duration, log *logger.Logger) *CachedTickSource {
	return &CachedTickSource{
		store:      store,
		client:     client,
		expiration: expiration,
		logger:     log,
	}
}

// NewRedisClient connects using the redis section of the config.
func NewRedisClient(cfg models.MRedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// latestKey returns the Redis key holding the newest tick of code on date.
func latestKey(code string, date models.MDate) string {
	return fmt.Sprintf("tick:latest:%s:%s", code, date)
}

// -----------------------------------------------------------------------------

func (c *CachedTickSource) HistoricalTicks(ctx context.Context, stockCode string, date models.MDate) ([]models.MTick, error) {
	return c.store.HistoricalTicks(ctx, stockCode, date)
}

func (c *CachedTickSource) LatestTick(ctx context.Context, stockCode string, date models.MDate) (*models.MTick, error) {
	tick, err := c.cached(ctx, stockCode, date)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.LatestCacheHits.WithLabelValues("error").Inc()
		c.logger.Warning("Latest tick cache read failed for %s: %v", stockCode, err)
	} else if tick != nil {
		metrics.LatestCacheHits.WithLabelValues("hit").Inc()
		return tick, nil
	} else {
		metrics.LatestCacheHits.WithLabelValues("miss").Inc()
	}

	return c.store.LatestTick(ctx, stockCode, date)
}

func (c *CachedTickSource) cached(ctx context.Context, stockCode string, date models.MDate) (*models.MTick, error) {
	data, err := c.client.Get(ctx, latestKey(stockCode, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var tick models.MTick
	if err := json.Unmarshal(data, &tick); err != nil {
		return nil, fmt.Errorf("failed to decode cached tick: %w", err)
	}
	return &tick, nil
}

// -----------------------------------------------------------------------------

// PutLatest records tick as the newest for its instrument unless the cache
// already holds a later one. Ticks without a time are ignored.
func (c *CachedTickSource) PutLatest(ctx context.Context, tick *models.MTick) error {
	if !tick.HasTime() {
		return nil
	}
	date := models.DateOf(tick.Time.Time)
	if tick.Date != nil {
		date = *tick.Date
	}

	current, err := c.cached(ctx, tick.TsCode, date)
	if err != nil {
		return err
	}
	if current.HasTime() && !tick.Time.After(current.Time.Time) {
		return nil
	}

	payload, err := json.Marshal(tick)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestKey(tick.TsCode, date), payload, c.expiration).Err()
}

// Ping checks the Redis connection.
func (c *CachedTickSource) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CachedTickSource) Close() error {
	return c.client.Close()
}
