package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"market-stream/src/config"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/server"
	"market-stream/src/stream"
)

const (
	cleanupInterval = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Storage, calendar, tick source
	db, err := setupDatabase(ctx, conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	loc := conf.Location()
	calendar := setupCalendar(ctx, conf.MConfig, db, loc, appLogger)
	source, cache := setupTickSource(ctx, conf.MConfig, db, appLogger)

	// 5. Streaming core
	hub := server.NewHub(appLogger.Named("Hub"))
	pool := stream.NewWorkerPool(conf.Stream.Workers, conf.Stream.QueueSize, appLogger.Named("WorkerPool"))
	driver := stream.NewDriver(source, calendar, hub, pool, stream.Options{
		PollInterval:  time.Duration(conf.Stream.PollIntervalSeconds) * time.Second,
		PushThreshold: time.Duration(conf.Stream.PushThresholdSeconds) * time.Second,
		FetchTimeout:  time.Duration(conf.Stream.FetchTimeoutSeconds) * time.Second,
		Location:      loc,
	}, appLogger.Named("StreamDriver"))

	// 6. Start Servers
	api := server.NewAPIServer(conf.MConfig, hub, driver, appLogger.Named("APIServer"))
	grpcServer := startServers(api, hub, driver, conf, appLogger)

	// 7. Background work
	var wg sync.WaitGroup

	consumer, reader := setupIngest(conf.MConfig, db, cache, appLogger)
	if consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				appLogger.Error("Tick ingest stopped: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runCleanup(ctx, db, appLogger)
	}()

	// 8. Wait for a signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()

	driver.Shutdown()
	hub.CloseAll(stream.ReasonShutdown)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := api.Stop(stopCtx); err != nil {
		appLogger.Error("HTTP shutdown error: %v", err)
	}
	grpcServer.GracefulStop()

	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			appLogger.Error("Kafka reader close error: %v", err)
		}
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			appLogger.Error("Redis close error: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		appLogger.Error("Database close error: %v", err)
	}

	appLogger.Info("Shutdown complete.")
}

// -----------------------------------------------------------------------------

// runCleanup applies the retention policy at startup and then once a day.
func runCleanup(ctx context.Context, db interfaces.IDatabase, appLogger *logger.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		if err := db.CleanupOldData(); err != nil {
			appLogger.Error("Retention cleanup failed: %v", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
