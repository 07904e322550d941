package store

import (
	"sync"
)

// workQueue is a fixed-size goroutine pool with a bounded input queue.
// Stores run it with one worker so snapshot writes never overlap.
type workQueue[T any] struct {
	queue   chan T
	process func(T)
	wg      sync.WaitGroup
}

// newWorkQueue creates and starts a queue with n goroutines and room for
// size pending jobs.
func newWorkQueue[T any](n, size int, fn func(T)) *workQueue[T] {
	q := &workQueue[T]{
		queue:   make(chan T, size),
		process: fn,
	}
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for job := range q.queue {
				q.process(job)
			}
		}()
	}
	return q
}

// Submit enqueues a job without blocking (returns false if full).
func (q *workQueue[T]) Submit(job T) bool {
	select {
	case q.queue <- job:
		return true
	default:
		return false
	}
}

// Drain closes the queue and waits for queued jobs to finish.
// Submit must not be called afterwards.
func (q *workQueue[T]) Drain() {
	close(q.queue)
	q.wg.Wait()
}
