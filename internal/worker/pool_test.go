package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestPool(workers, queueSize int) *Pool {
	return NewPool(PoolConfig{
		WorkerCount: workers,
		QueueSize:   queueSize,
		TaskTimeout: 5 * time.Second,
		Logger:      zap.NewNop(),
	})
}

func TestPoolRunsEnqueuedTasks(t *testing.T) {
	p := newTestPool(2, 16)
	p.Start(context.Background())

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		ok := p.Enqueue("count", func(ctx context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		})
		if !ok {
			t.Fatal("enqueue should succeed while running")
		}
	}

	wg.Wait()
	p.Stop()

	if got := ran.Load(); got != 10 {
		t.Errorf("ran %d tasks, want 10", got)
	}
}

func TestPoolDrainsOnStop(t *testing.T) {
	p := newTestPool(1, 16)
	p.Start(context.Background())

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		p.Enqueue("drain", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			ran.Add(1)
			return nil
		})
	}

	// Stop must wait for everything already queued.
	p.Stop()

	if got := ran.Load(); got != 5 {
		t.Errorf("ran %d tasks before Stop returned, want 5", got)
	}
}

func TestEnqueueAfterStopIsDropped(t *testing.T) {
	p := newTestPool(1, 4)
	p.Start(context.Background())
	p.Stop()

	if ok := p.Enqueue("late", func(ctx context.Context) error { return nil }); ok {
		t.Error("enqueue after Stop should report a drop, not success")
	}
}

func TestEnqueueFullQueueIsDropped(t *testing.T) {
	p := newTestPool(1, 1)
	// Not started: nothing consumes the queue, so the second enqueue
	// must hit the full-queue path instead of blocking.
	if ok := p.Enqueue("first", func(ctx context.Context) error { return nil }); !ok {
		t.Fatal("first enqueue should fit the queue")
	}
	if ok := p.Enqueue("second", func(ctx context.Context) error { return nil }); ok {
		t.Error("second enqueue should be dropped when the queue is full")
	}
	if depth := p.QueueDepth(); depth != 1 {
		t.Errorf("queue depth = %d, want 1", depth)
	}
}

func TestPoolSurvivesPanicsAndErrors(t *testing.T) {
	p := newTestPool(1, 16)
	p.Start(context.Background())

	var after atomic.Bool
	var wg sync.WaitGroup

	p.Enqueue("panics", func(ctx context.Context) error {
		panic("boom")
	})
	p.Enqueue("errors", func(ctx context.Context) error {
		return errors.New("task error")
	})
	wg.Add(1)
	p.Enqueue("after", func(ctx context.Context) error {
		defer wg.Done()
		after.Store(true)
		return nil
	})

	wg.Wait()
	p.Stop()

	if !after.Load() {
		t.Error("worker should keep processing after a panicking task")
	}
}

func TestTaskTimeoutExpiresContext(t *testing.T) {
	p := NewPool(PoolConfig{
		WorkerCount: 1,
		QueueSize:   4,
		TaskTimeout: 20 * time.Millisecond,
		Logger:      zap.NewNop(),
	})
	p.Start(context.Background())

	done := make(chan error, 1)
	p.Enqueue("slow", func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("ctx err = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task context never expired")
	}
	p.Stop()
}
