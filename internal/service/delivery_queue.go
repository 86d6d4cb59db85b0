package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrQueueClosed is returned when a delivery is submitted after Close.
var ErrQueueClosed = errors.New("delivery queue closed")

// DeliveryQueue runs delivery tasks in the background with bounded concurrency.
// Submit never blocks the caller; tasks wait for a slot in their own goroutine.
type DeliveryQueue struct {
	sem    *semaphore.Weighted
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDeliveryQueue creates a queue running at most concurrency tasks at once.
func NewDeliveryQueue(concurrency int, logger *slog.Logger) *DeliveryQueue {
	if concurrency <= 0 {
		concurrency = 1
	}

	return &DeliveryQueue{
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger,
	}
}

// Submit schedules task. The task context keeps the values of ctx but not its
// cancellation, so a finished request does not abort the delivery.
func (q *DeliveryQueue) Submit(ctx context.Context, task func(ctx context.Context)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.wg.Add(1)

	taskCtx := context.WithoutCancel(ctx)

	go func() {
		defer q.wg.Done()

		if err := q.sem.Acquire(taskCtx, 1); err != nil {
			q.logger.ErrorContext(taskCtx, "failed to acquire delivery slot", slog.String("error", err.Error()))
			return
		}
		defer q.sem.Release(1)

		task(taskCtx)
	}()

	return nil
}

// Close stops accepting tasks and waits for the running ones until ctx is done.
func (q *DeliveryQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})

	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
