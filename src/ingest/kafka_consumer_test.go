package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"market-stream/src/logger"
	"market-stream/src/models"
	"market-stream/src/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockReader replays a fixed set of messages, then blocks until cancelled.
type mockReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
}

func (r *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.committed = append(r.committed, msgs...)
	r.mu.Unlock()
	return nil
}

func (r *mockReader) Close() error { return nil }

func (r *mockReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func messages(payloads ...string) []kafka.Message {
	out := make([]kafka.Message, 0, len(payloads))
	for i, p := range payloads {
		out = append(out, kafka.Message{Offset: int64(i), Value: []byte(p)})
	}
	return out
}

var friday = models.MDate{Year: 2025, Month: time.March, Day: 14}

func TestConsumer_StoresTicksAndCachesNewest(t *testing.T) {
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBPath: filepath.Join(t.TempDir(), "ingest.db")}}
	db, err := storage.NewAsyncSQLiteDB(cfg, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	defer db.Close()

	mr := miniredis.RunT(t)
	cache := storage.NewCachedTickSource(db, redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour, logger.NewNop())
	defer cache.Close()

	reader := &mockReader{messages: messages(
		`{"tsCode":"600000","price":"10.50","time":"2025-03-14 10:00:00.000"}`,
		`not json`,
		`{"tsCode":"600000","price":"10.55","time":"2025-03-14 10:00:04.000"}`,
		`{"tsCode":"000001","price":"12.00","time":"2025-03-14 10:00:02.000"}`,
		`{"price":"1"}`,
	)}
	consumer := NewConsumer(reader, db, cache, 10, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	require.Eventually(t, func() bool { return reader.committedCount() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	history, err := db.HistoricalTicks(context.Background(), "600000", friday)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Contains(t, history[0].RawJSON, `"10.50"`)

	assert.True(t, mr.Exists("tick:latest:600000:2025-03-14"))
	assert.True(t, mr.Exists("tick:latest:000001:2025-03-14"))

	latest, err := cache.LatestTick(context.Background(), "600000", friday)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14 10:00:04.000", latest.Time.String())
}

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSink) SaveTicks(context.Context, []models.MTick) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return errors.New("db down")
}

func TestConsumer_StoreFailureStillCommits(t *testing.T) {
	reader := &mockReader{messages: messages(`{"tsCode":"600000","time":"2025-03-14 10:00:00"}`)}
	sink := &failingSink{}
	consumer := NewConsumer(reader, sink, nil, 10, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	require.Eventually(t, func() bool { return reader.committedCount() == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, saveRetries, sink.calls)
}

func TestDecodeTick(t *testing.T) {
	tick, err := decodeTick([]byte(`{"tsCode":"600000","time":"2025-03-14 10:00:00"}`))
	require.NoError(t, err)
	require.NotNil(t, tick.Date)
	assert.Equal(t, friday, *tick.Date)
	assert.NotEmpty(t, tick.RawJSON)

	_, err = decodeTick([]byte(`{"time":"2025-03-14 10:00:00"}`))
	assert.Error(t, err)
}
