package utils

import (
	"errors"
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines and collects
// their errors. A positive interval spaces out job starts.
type WorkerPool struct {
	interval  time.Duration
	semaphore chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	lastStart time.Time
	errs      []error
}

// NewWorkerPool creates a WorkerPool running at most maxWorkers jobs at once.
func NewWorkerPool(maxWorkers int, interval time.Duration) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		interval:  interval,
		semaphore: make(chan struct{}, maxWorkers),
	}
}

// Submit enqueues a job, blocking while every worker is busy.
func (wp *WorkerPool) Submit(job func() error) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.throttle()
		if err := job(); err != nil {
			wp.mu.Lock()
			wp.errs = append(wp.errs, err)
			wp.mu.Unlock()
		}
	}()
}

// Wait blocks until all submitted jobs have completed and returns their
// errors joined, or nil.
func (wp *WorkerPool) Wait() error {
	wp.wg.Wait()
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return errors.Join(wp.errs...)
}

func (wp *WorkerPool) throttle() {
	if wp.interval <= 0 {
		return
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if elapsed := time.Since(wp.lastStart); elapsed < wp.interval {
		time.Sleep(wp.interval - elapsed)
	}
	wp.lastStart = time.Now()
}
