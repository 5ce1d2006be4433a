package pipeline

import (
	"context"
	"errors"
)

// ErrQueueEmpty is returned by Dequeue when no job is available within
// the backend's wait window. Workers treat it as "poll again".
var ErrQueueEmpty = errors.New("queue empty")

// Delivery is a dequeued job plus its acknowledgement handles. Ack
// removes the job permanently; Nak returns it to the queue for
// redelivery. Exactly one of the two should be called, once.
type Delivery struct {
	Job Job
	Ack func() error
	Nak func() error
}

// Queue is the transport between pipeline stages. Each stage has its
// own logical queue addressed by stage name.
type Queue interface {
	// Enqueue adds a job to the queue for its stage.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks up to the backend's wait window for a job on the
	// given stage, returning ErrQueueEmpty when none arrives.
	Dequeue(ctx context.Context, stage Stage) (Delivery, error)

	// Close releases backend resources.
	Close() error
}
