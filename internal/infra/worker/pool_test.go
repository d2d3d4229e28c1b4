//go:build !integration

package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestPool_RunsAndDrains(t *testing.T) {
	p := NewPool(2, 16, newTestLogger())
	p.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if err := p.Submit(func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if ran.Load() != 10 {
		t.Errorf("expected all accepted tasks to run, got %d", ran.Load())
	}
	if err := p.Submit(func(context.Context) error { return nil }); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed after stop, got %v", err)
	}
}

func TestPool_QueueFull(t *testing.T) {
	// not started: nothing drains the queue
	p := NewPool(1, 1, newTestLogger())
	noop := func(context.Context) error { return nil }

	if err := p.Submit(noop); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := p.Submit(noop); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if err := p.Submit(nil); err == nil {
		t.Error("expected error for nil task")
	}
}

func TestPool_PanicIsContained(t *testing.T) {
	p := NewPool(1, 4, newTestLogger())
	p.Start(context.Background())

	var after atomic.Bool
	_ = p.Submit(func(context.Context) error { panic("boom") })
	_ = p.Submit(func(context.Context) error { after.Store(true); return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !after.Load() {
		t.Error("expected the worker to survive a panicking task")
	}
}

func TestPool_StopTimeoutCancelsTasks(t *testing.T) {
	p := NewPool(1, 4, newTestLogger())
	p.Start(context.Background())

	canceled := make(chan struct{})
	_ = p.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Error("expected running task to see cancellation")
	}
}
