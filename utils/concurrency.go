package utils

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// WorkerPool runs submitted jobs with at most maxWorkers in flight.
type WorkerPool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool with the given concurrency.
// Values below 1 are treated as 1.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{sem: semaphore.NewWeighted(int64(maxWorkers))}
}

// Submit blocks until a worker slot is free and then runs job in its own
// goroutine. It returns ctx.Err() without running job if ctx ends first.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) error {
	if err := wp.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	wp.wg.Add(1)

	go func() {
		defer wp.wg.Done()
		defer wp.sem.Release(1)
		job()
	}()
	return nil
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// KeySet is a thread-safe set of string keys, used to drop repeated
// listings within a run.
type KeySet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Size returns the number of distinct keys added so far.
func (s *KeySet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
