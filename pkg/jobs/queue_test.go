package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.Payload.(string)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "probe", Payload: "media-1"}))

	select {
	case got := <-done:
		assert.Equal(t, "media-1", got)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesThenCallsExhausted(t *testing.T) {
	var calls int32
	exhausted := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
		OnExhausted: func(ctx context.Context, job Job, err error) {
			exhausted <- job
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "probe"}))

	select {
	case job := <-exhausted:
		assert.Equal(t, "1", job.ID)
		assert.Equal(t, 3, job.Attempt)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("exhausted handler was not called")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "1"}), ErrNotStarted)
}

func TestQueueEnqueueAfterStop(t *testing.T) {
	q := NewQueue("stopped", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{ID: "1"}), ErrStopped)
}

func TestQueueRecoversHandlerPanic(t *testing.T) {
	exhausted := make(chan error, 1)
	q := NewQueue("panicky", func(ctx context.Context, job Job) error {
		panic("corrupt header")
	}, QueueConfig{
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
		OnExhausted: func(ctx context.Context, job Job, err error) {
			exhausted <- err
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1"}))

	select {
	case err := <-exhausted:
		assert.Contains(t, err.Error(), "corrupt header")
	case <-time.After(2 * time.Second):
		t.Fatal("panicking job was not reported")
	}
}

func TestQueueAppliesJobTimeout(t *testing.T) {
	exhausted := make(chan error, 1)
	q := NewQueue("slow", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
		JobTimeout: 20 * time.Millisecond,
		OnExhausted: func(ctx context.Context, job Job, err error) {
			exhausted <- err
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1"}))

	select {
	case err := <-exhausted:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("job timeout was not applied")
	}
}

func TestQueueBackoffDoublesUpToCap(t *testing.T) {
	q := NewQueue("backoff", nil, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 5*time.Second, q.backoff(4))
	assert.Equal(t, 5*time.Second, q.backoff(10))
}
