// Package ingest consumes realtime ticks from Kafka into the tick store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/logger"
	"market-stream/src/metrics"
	"market-stream/src/models"

	"github.com/segmentio/kafka-go"
)

const (
	defaultBatchSize = 100
	flushInterval    = 200 * time.Millisecond
	saveRetries      = 3
)

// KafkaReader abstracts the input stream
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TickSink persists decoded ticks.
type TickSink interface {
	SaveTicks(ctx context.Context, ticks []models.MTick) error
}

// LatestCache receives the newest tick of every instrument in a batch.
type LatestCache interface {
	PutLatest(ctx context.Context, tick *models.MTick) error
}

// -----------------------------------------------------------------------------

type Consumer struct {
	reader    KafkaReader
	sink      TickSink
	cache     LatestCache
	batchSize int
	logger    *logger.Logger
}

// NewConsumer builds a consumer; cache may be nil.
func NewConsumer(reader KafkaReader, sink TickSink, cache LatestCache, batchSize int, log *logger.Logger) *Consumer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Consumer{
		reader:    reader,
		sink:      sink,
		cache:     cache,
		batchSize: batchSize,
		logger:    log,
	}
}

// NewKafkaReader builds a consumer-group reader from the kafka config section.
func NewKafkaReader(cfg models.MKafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		MinBytes:          200,
		MaxBytes:          10e6,
		MaxWait:           200 * time.Millisecond,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    10 * time.Second,
	})
}

// -----------------------------------------------------------------------------

// Run consumes until ctx is cancelled. Offsets are committed only after the
// batch has been handed to the store.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Tick ingest started (batch size %d)", c.batchSize)
	for {
		batch, err := c.fetchBatch(ctx)
		if len(batch) > 0 {
			c.process(ctx, batch)
		}
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Tick ingest stopped")
				return nil
			}
			metrics.IngestErrors.WithLabelValues("fetch").Inc()
			c.logger.Error("Kafka fetch error: %v", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// fetchBatch blocks for the first message, then collects more until the batch
// is full or the flush interval elapses.
func (c *Consumer) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	first, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}

	flushCtx, cancel := context.WithTimeout(ctx, flushInterval)
	defer cancel()
	for len(batch) < c.batchSize {
		m, err := c.reader.FetchMessage(flushCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return batch, nil
			}
			return batch, err
		}
		batch = append(batch, m)
	}
	return batch, nil
}

// -----------------------------------------------------------------------------

func (c *Consumer) process(ctx context.Context, batch []kafka.Message) {
	ticks := make([]models.MTick, 0, len(batch))
	for _, m := range batch {
		tick, err := decodeTick(m.Value)
		if err != nil {
			metrics.IngestErrors.WithLabelValues("decode").Inc()
			c.logger.Warning("Skipping undecodable tick at offset %d: %v", m.Offset, err)
			continue
		}
		ticks = append(ticks, tick)
	}

	if len(ticks) > 0 {
		err := helpers.RetryWithBackoff(ctx, c.logger, "save ticks", saveRetries, 100*time.Millisecond, func() error {
			return c.sink.SaveTicks(ctx, ticks)
		})
		if err != nil {
			metrics.IngestErrors.WithLabelValues("store").Inc()
			c.logger.Error("Dropping %d ticks: %v", len(ticks), err)
		} else {
			metrics.TicksIngested.Add(float64(len(ticks)))
			c.updateLatest(ctx, ticks)
		}
	}

	if err := c.reader.CommitMessages(ctx, batch...); err != nil && ctx.Err() == nil {
		metrics.IngestErrors.WithLabelValues("commit").Inc()
		c.logger.Error("Kafka commit error: %v", err)
	}
}

func (c *Consumer) updateLatest(ctx context.Context, ticks []models.MTick) {
	if c.cache == nil {
		return
	}
	newest := make(map[string]*models.MTick)
	for i := range ticks {
		t := &ticks[i]
		if !t.HasTime() {
			continue
		}
		if cur, ok := newest[t.TsCode]; !ok || t.Time.After(cur.Time.Time) {
			newest[t.TsCode] = t
		}
	}
	for code, t := range newest {
		if err := c.cache.PutLatest(ctx, t); err != nil {
			metrics.IngestErrors.WithLabelValues("cache").Inc()
			c.logger.Warning("Latest tick cache write failed for %s: %v", code, err)
		}
	}
}

// decodeTick parses one message and keeps the raw payload when the producer
// did not supply one.
func decodeTick(payload []byte) (models.MTick, error) {
	var tick models.MTick
	if err := json.Unmarshal(payload, &tick); err != nil {
		return models.MTick{}, err
	}
	if tick.TsCode == "" {
		return models.MTick{}, errors.New("tick has no tsCode")
	}
	if tick.Date == nil && tick.HasTime() {
		d := models.DateOf(tick.Time.Time)
		tick.Date = &d
	}
	if tick.RawJSON == "" {
		tick.RawJSON = string(payload)
	}
	return tick, nil
}
