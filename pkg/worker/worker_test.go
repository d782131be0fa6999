package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerManager_ProcessesJobs(t *testing.T) {
	w := NewWorkerManager(10, 3)

	var wg sync.WaitGroup
	var sum int64
	w.SetWorker(func(_ int, job interface{}) {
		atomic.AddInt64(&sum, int64(job.(int)))
		wg.Done()
	})

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	for i := 1; i <= 10; i++ {
		wg.Add(1)
		require.NoError(t, w.Enqueue(context.Background(), i))
	}
	wg.Wait()
	assert.Equal(t, int64(55), atomic.LoadInt64(&sum))

	w.Exit()
	w.Exit()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestWorkerManager_Enqueue(t *testing.T) {
	t.Run("context cancelled while buffer is full", func(t *testing.T) {
		w := NewWorkerManager(1, 1)
		require.NoError(t, w.Enqueue(context.Background(), 1))
		assert.Equal(t, int64(1), w.GetUnreadCount())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, w.Enqueue(ctx, 2), context.DeadlineExceeded)
	})

	t.Run("after exit", func(t *testing.T) {
		w := NewWorkerManager(0, 1)
		w.Exit()
		assert.ErrorIs(t, w.Enqueue(context.Background(), 1), ErrStopped)
	})
}

func TestWorkerManager_StartWithoutHandler(t *testing.T) {
	w := NewWorkerManager(1, 1)
	assert.Error(t, w.Start())
}
