package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeySetNoDuplicates(t *testing.T) {
	s := NewKeySet()

	if !s.Add("mercadolibre:MLA-1") {
		t.Error("first Add should return true")
	}
	if s.Add("mercadolibre:MLA-1") {
		t.Error("second Add of same key should return false")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestKeySetConcurrency(t *testing.T) {
	s := NewKeySet()
	var added int64

	pool := NewWorkerPool(10)
	for i := 0; i < 100; i++ {
		if err := pool.Submit(context.Background(), func() {
			if s.Add("zonaprop:zp-1") {
				atomic.AddInt64(&added, 1)
			}
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	const limit = 3
	pool := NewWorkerPool(limit)

	var inFlight, peak int64
	for i := 0; i < 20; i++ {
		err := pool.Submit(context.Background(), func() {
			n := atomic.AddInt64(&inFlight, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Wait()

	if peak > limit {
		t.Errorf("peak concurrency: got %d, want <= %d", peak, limit)
	}
}

func TestWorkerPoolSubmitCancelled(t *testing.T) {
	pool := NewWorkerPool(1)
	release := make(chan struct{})
	if err := pool.Submit(context.Background(), func() { <-release }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Submit(ctx, func() { t.Error("job must not run after cancellation") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Submit on cancelled ctx: got %v, want context.Canceled", err)
	}

	close(release)
	pool.Wait()
}

func TestRetryDo(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewDiscardLogger()}

	calls := 0
	err := r.Do(context.Background(), "flaky", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Do: unexpected error %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}

	sentinel := errors.New("down")
	err = r.Do(context.Background(), "dead", func(context.Context) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("Do: got %v, want wrapped sentinel", err)
	}
}
