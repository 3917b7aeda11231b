package main

import (
	"context"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/ingest"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"
	"market-stream/src/storage"
	"market-stream/src/utils"

	"github.com/segmentio/kafka-go"
)

const (
	startupRetries    = 5
	startupRetryDelay = 500 * time.Millisecond
)

// -----------------------------------------------------------------------------

// setupDatabase initializes the database connection based on config
func setupDatabase(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	var db interfaces.IDatabase
	var err error

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config, appLogger.Named("PostgresDB"))
	default:
		db, err = storage.NewAsyncSQLiteDB(config, appLogger.Named("SQLiteDB"))
	}
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}

	err = helpers.RetryWithBackoff(ctx, appLogger, "database initialize", startupRetries, startupRetryDelay, db.Initialize)
	if err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupCalendar chains the stored calendar with the exchange holiday rules when
// enabled, and optionally seeds the calendar table from those rules.
func setupCalendar(ctx context.Context, config *models.MConfig, db interfaces.IDatabase, loc *time.Location, appLogger *logger.Logger) interfaces.ITradingCalendar {
	calLogger := appLogger.Named("TradingCalendar")
	exchange := utils.NewExchangeCalendar(config.Calendar.Exchange, calLogger)

	if n := config.Calendar.SeedDays; n > 0 {
		today := models.DateOf(time.Now().In(loc))
		days := exchange.Days(today.AddDays(-n), today.AddDays(n))
		if err := db.SaveCalendarDays(ctx, days); err != nil {
			appLogger.Error("Failed to seed trading calendar: %v", err)
		} else {
			appLogger.Info("Seeded %d calendar days from exchange %s", len(days), exchange.MIC)
		}
	}

	if !config.Calendar.FallbackExchange {
		return db
	}
	return utils.NewChainCalendar(db, exchange, calLogger)
}

// -----------------------------------------------------------------------------

// setupTickSource puts the redis latest-tick cache in front of the store when
// enabled. The returned cache is nil when redis is off.
func setupTickSource(ctx context.Context, config *models.MConfig, db interfaces.IDatabase, appLogger *logger.Logger) (interfaces.ITickSource, *storage.CachedTickSource) {
	if !config.Redis.Enabled {
		return db, nil
	}

	client := storage.NewRedisClient(config.Redis)
	err := helpers.RetryWithBackoff(ctx, appLogger, "redis ping", startupRetries, startupRetryDelay, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		appLogger.Error("Redis unavailable at %s, serving ticks from the database only: %v", config.Redis.Addr, err)
		_ = client.Close()
		return db, nil
	}

	ttl := time.Duration(config.Redis.LatestTTLMinute) * time.Minute
	cache := storage.NewCachedTickSource(db, client, ttl, appLogger.Named("LatestCache"))
	appLogger.Info("Latest-tick cache enabled at %s", config.Redis.Addr)
	return cache, cache
}

// -----------------------------------------------------------------------------

// setupIngest builds the kafka consumer, or returns nil when ingest is off.
func setupIngest(config *models.MConfig, db interfaces.IDatabase, cache *storage.CachedTickSource, appLogger *logger.Logger) (*ingest.Consumer, *kafka.Reader) {
	if !config.Kafka.Enabled {
		return nil, nil
	}

	var latest ingest.LatestCache
	if cache != nil {
		latest = cache
	}

	reader := ingest.NewKafkaReader(config.Kafka)
	consumer := ingest.NewConsumer(reader, db, latest, config.Kafka.BatchSize, appLogger.Named("TickIngest"))
	return consumer, reader
}
