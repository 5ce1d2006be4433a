package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	natsConnectTimeout = 10 * time.Second
	natsMaxReconnects  = 5
	natsFetchMaxWait   = 5 * time.Second
	natsAckWait        = 5 * time.Minute
)

// NatsQueue is the durable queue backend. Each stage maps to a subject
// under the stream; the stream uses work-queue retention so a job is
// owned by exactly one worker until acked.
type NatsQueue struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string

	mu   sync.Mutex
	subs map[Stage]*nats.Subscription
}

// NewNatsQueue connects to the server and ensures the stream exists
// with a subject per stage.
func NewNatsQueue(url, stream string) (*NatsQueue, error) {
	nc, err := nats.Connect(
		url,
		nats.Timeout(natsConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(natsMaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	q := &NatsQueue{
		nc:     nc,
		js:     js,
		stream: stream,
		subs:   make(map[Stage]*nats.Subscription),
	}

	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{stream + ".>"},
			Retention: nats.WorkQueuePolicy,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream %q: %w", stream, err)
		}
	}

	return q, nil
}

// subject maps a stage to its stream subject. Stage names use dots
// already, so they slot directly under the stream prefix.
func (q *NatsQueue) subject(stage Stage) string {
	return q.stream + "." + string(stage)
}

// durable derives a consumer name from the stage. Consumer names may
// not contain dots.
func (q *NatsQueue) durable(stage Stage) string {
	return strings.ReplaceAll(string(stage), ".", "-")
}

// Enqueue publishes the job to its stage subject.
func (q *NatsQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := job.Marshal()
	if err != nil {
		return err
	}
	if _, err := q.js.Publish(q.subject(job.Stage), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
	}
	return nil
}

func (q *NatsQueue) subscription(stage Stage) (*nats.Subscription, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if sub, ok := q.subs[stage]; ok {
		return sub, nil
	}
	sub, err := q.js.PullSubscribe(
		q.subject(stage),
		q.durable(stage),
		nats.BindStream(q.stream),
		nats.AckWait(natsAckWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to stage %s: %w", stage, err)
	}
	q.subs[stage] = sub
	return sub, nil
}

// Dequeue fetches one job from the stage's consumer.
func (q *NatsQueue) Dequeue(ctx context.Context, stage Stage) (Delivery, error) {
	sub, err := q.subscription(stage)
	if err != nil {
		return Delivery{}, err
	}

	msgs, err := sub.Fetch(1, nats.MaxWait(natsFetchMaxWait))
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return Delivery{}, ErrQueueEmpty
		}
		return Delivery{}, fmt.Errorf("failed to fetch from stage %s: %w", stage, err)
	}
	if len(msgs) == 0 {
		return Delivery{}, ErrQueueEmpty
	}

	msg := msgs[0]
	job, err := UnmarshalJob(msg.Data)
	if err != nil {
		// Unparseable message; ack to discard, it will never succeed.
		_ = msg.Ack()
		return Delivery{}, err
	}

	return Delivery{
		Job: job,
		Ack: func() error { return msg.Ack() },
		Nak: func() error { return msg.Nak() },
	}, nil
}

// Close drains the connection.
func (q *NatsQueue) Close() error {
	q.nc.Close()
	return nil
}

var _ Queue = (*NatsQueue)(nil)
