package pipeline

import (
	"context"
	"sync"
	"time"
)

// memoryQueueCapacity bounds each per-stage channel. Stories number in
// the dozens, not millions; hitting this bound means something upstream
// is stuck and backpressure is the right answer.
const memoryQueueCapacity = 1024

// defaultVisibilityTimeout is how long a dequeued job may stay
// unacknowledged before it is redelivered.
const defaultVisibilityTimeout = 5 * time.Minute

// MemoryQueue is the in-process queue backend used by default and in
// tests. Jobs dequeued but neither acked nor nacked are redelivered
// after the visibility timeout, mirroring the at-least-once semantics
// of the durable backend.
type MemoryQueue struct {
	mu       sync.Mutex
	channels map[Stage]chan Job
	closed   bool

	// VisibilityTimeout overrides the redelivery window; zero uses the
	// default.
	VisibilityTimeout time.Duration
}

// NewMemoryQueue creates an in-process queue with a channel per stage.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		channels: make(map[Stage]chan Job),
	}
}

func (q *MemoryQueue) channel(stage Stage) chan Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.channels[stage]
	if !ok {
		ch = make(chan Job, memoryQueueCapacity)
		q.channels[stage] = ch
	}
	return ch
}

// Enqueue adds a job to its stage channel.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.channel(job.Stage) <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue waits briefly for a job on the stage channel. The short wait
// keeps worker loops responsive to shutdown without busy-polling.
func (q *MemoryQueue) Dequeue(ctx context.Context, stage Stage) (Delivery, error) {
	select {
	case job := <-q.channel(stage):
		return q.deliver(job), nil
	case <-time.After(500 * time.Millisecond):
		return Delivery{}, ErrQueueEmpty
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

// deliver wraps a job with ack handles and arms the redelivery timer.
func (q *MemoryQueue) deliver(job Job) Delivery {
	timeout := q.VisibilityTimeout
	if timeout <= 0 {
		timeout = defaultVisibilityTimeout
	}

	var once sync.Once
	timer := time.AfterFunc(timeout, func() {
		once.Do(func() {
			q.redeliver(job)
		})
	})

	return Delivery{
		Job: job,
		Ack: func() error {
			once.Do(func() { timer.Stop() })
			return nil
		},
		Nak: func() error {
			once.Do(func() {
				timer.Stop()
				q.redeliver(job)
			})
			return nil
		},
	}
}

func (q *MemoryQueue) redeliver(job Job) {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return
	}
	select {
	case q.channel(job.Stage) <- job:
	default:
		// Channel full; the job is lost. Acceptable for the in-process
		// backend, the durable backend handles overload properly.
	}
}

// Close marks the queue closed. Pending timers become no-ops.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
