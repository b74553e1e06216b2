package aging

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
)

const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = 10 * time.Second
)

type delivery struct {
	body     []byte
	attempts int
}

// MemoryQueue is the in-process aging queue used with the local scheduler.
// A failed message is redelivered after retryDelay until maxAttempts is
// reached, then dropped with an error log.
type MemoryQueue struct {
	ch          chan delivery
	logger      logging.Logger
	maxAttempts int
	retryDelay  time.Duration

	wg sync.WaitGroup
}

func NewMemoryQueue(size int, logger logging.Logger) *MemoryQueue {
	return &MemoryQueue{
		ch:          make(chan delivery, size),
		logger:      logger.With("module", "memory-queue"),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Publish enqueues payload, blocking while the buffer is full.
func (q *MemoryQueue) Publish(ctx context.Context, payload []byte) error {
	return q.enqueue(ctx, delivery{body: append([]byte(nil), payload...)})
}

func (q *MemoryQueue) enqueue(ctx context.Context, d delivery) error {
	select {
	case q.ch <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes messages until ctx is cancelled, then waits for pending
// redelivery timers to finish.
func (q *MemoryQueue) Run(ctx context.Context, p *Processor) error {
	defer q.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-q.ch:
			d.attempts++
			if err := p.Process(ctx, d.body); err != nil {
				q.retry(ctx, d)
			}
		}
	}
}

func (q *MemoryQueue) retry(ctx context.Context, d delivery) {
	if d.attempts >= q.maxAttempts {
		q.logger.Error(ctx, "dropping aging message", "attempts", d.attempts, "body", string(d.body))
		return
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-ctx.Done():
		case <-time.After(q.retryDelay):
			_ = q.enqueue(ctx, d)
		}
	}()
}
