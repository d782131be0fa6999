package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/momo-analyzer/internal/model"
	"github.com/nimasrn/momo-analyzer/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	// adapters are cached by name, so every test gets its own
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func testConfig(name string) QueueConfig {
	return QueueConfig{
		Name:              name,
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func TestQueue_PublishAndConsume(t *testing.T) {
	_, adapter := setupTestRedis(t)

	queue, err := NewQueue(adapter, testConfig("test:imports"))
	require.NoError(t, err)
	defer queue.Stop(time.Second)

	job := model.ImportJob{
		ID:       "job-1",
		Document: []byte(`<smses></smses>`),
		Status:   model.ImportStatusQueued,
	}
	_, err = queue.PublishJSON(context.Background(), job, map[string]string{"kind": "import"})
	require.NoError(t, err)

	received := make(chan *Message, 1)
	require.NoError(t, queue.Consume(func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	}))

	select {
	case msg := <-received:
		var got model.ImportJob
		require.NoError(t, msg.Decode(&got))
		assert.Equal(t, "job-1", got.ID)
		assert.Equal(t, []byte(`<smses></smses>`), got.Document)
		assert.Equal(t, "import", msg.Metadata["kind"])
		assert.Zero(t, msg.Attempts)
		assert.False(t, msg.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	assert.Eventually(t, func() bool {
		stats, err := queue.GetStats()
		return err == nil && stats.PendingMessages == 0
	}, 2*time.Second, 50*time.Millisecond)
}

func TestQueue_FailedMessagesAreDeadLettered(t *testing.T) {
	_, adapter := setupTestRedis(t)

	config := testConfig("test:retry")
	config.MaxRetries = 2
	config.VisibilityTimeout = 200 * time.Millisecond

	queue, err := NewQueue(adapter, config)
	require.NoError(t, err)
	defer queue.Stop(time.Second)

	_, err = queue.Publish(context.Background(), []byte(`{"id":"job-retry"}`), map[string]string{"kind": "import"})
	require.NoError(t, err)

	var calls int32
	var lastAttempts int32
	require.NoError(t, queue.Consume(func(ctx context.Context, msg *Message) error {
		atomic.AddInt32(&calls, 1)
		atomic.StoreInt32(&lastAttempts, int32(msg.Attempts))
		return assert.AnError
	}))

	assert.Eventually(t, func() bool {
		n, err := adapter.XLen("test:retry:dlq")
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&lastAttempts))

	stats, err := queue.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.PendingMessages)
}

func TestQueue_GetStats(t *testing.T) {
	_, adapter := setupTestRedis(t)

	queue, err := NewQueue(adapter, testConfig("test:stats"))
	require.NoError(t, err)
	defer queue.Stop(time.Second)

	for i := 0; i < 5; i++ {
		_, err := queue.PublishJSON(context.Background(), map[string]int{"count": i}, nil)
		require.NoError(t, err)
	}

	stats, err := queue.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalMessages)
	assert.Zero(t, stats.PendingMessages)
}

func TestNewQueue(t *testing.T) {
	_, adapter := setupTestRedis(t)

	t.Run("name is required", func(t *testing.T) {
		_, err := NewQueue(adapter, QueueConfig{})
		assert.ErrorIs(t, err, ErrQueueNameRequired)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		queue, err := NewQueue(adapter, QueueConfig{Name: "test:defaults"})
		require.NoError(t, err)
		assert.Equal(t, "default-group", queue.config.ConsumerGroup)
		assert.Equal(t, 3, queue.config.MaxRetries)
		assert.Equal(t, int64(10), queue.config.BatchSize)
		assert.Equal(t, "test:defaults", queue.Name())
	})

	t.Run("existing group is reused", func(t *testing.T) {
		_, err := NewQueue(adapter, testConfig("test:shared"))
		require.NoError(t, err)
		_, err = NewQueue(adapter, testConfig("test:shared"))
		assert.NoError(t, err)
	})
}

func TestQueue_ConcurrentPublish(t *testing.T) {
	_, adapter := setupTestRedis(t)

	queue, err := NewQueue(adapter, testConfig("test:concurrent"))
	require.NoError(t, err)
	defer queue.Stop(time.Second)

	const n = 10
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(id int) {
			_, err := queue.PublishJSON(context.Background(), map[string]int{"id": id}, nil)
			assert.NoError(t, err)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	stats, err := queue.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(n), stats.TotalMessages)
}

func TestQueue_Stop(t *testing.T) {
	_, adapter := setupTestRedis(t)

	queue, err := NewQueue(adapter, testConfig("test:stop"))
	require.NoError(t, err)

	require.NoError(t, queue.Consume(func(ctx context.Context, msg *Message) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}))
	assert.NoError(t, queue.Stop(2*time.Second))

	assert.Error(t, queue.Consume(nil))
}
