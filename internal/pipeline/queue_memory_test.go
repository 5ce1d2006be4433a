package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueue then dequeue in order", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		first := NewJob("story-1", StageBriefExtract)
		second := NewJob("story-2", StageBriefExtract)
		if err := q.Enqueue(ctx, first); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if err := q.Enqueue(ctx, second); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}

		d, err := q.Dequeue(ctx, StageBriefExtract)
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if d.Job.StoryID != "story-1" {
			t.Errorf("Dequeue() story = %s, want story-1", d.Job.StoryID)
		}
		if err := d.Ack(); err != nil {
			t.Errorf("Ack() error = %v", err)
		}
	})

	t.Run("stages are isolated", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		if err := q.Enqueue(ctx, NewJob("story-1", StagePrepress)); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if _, err := q.Dequeue(ctx, StageBriefExtract); !errors.Is(err, ErrQueueEmpty) {
			t.Errorf("Dequeue(other stage) error = %v, want ErrQueueEmpty", err)
		}
	})

	t.Run("empty stage reports ErrQueueEmpty", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		if _, err := q.Dequeue(ctx, StagePrepress); !errors.Is(err, ErrQueueEmpty) {
			t.Errorf("Dequeue() error = %v, want ErrQueueEmpty", err)
		}
	})

	t.Run("nak redelivers immediately", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		job := NewJob("story-1", StagePrepress)
		if err := q.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		d, err := q.Dequeue(ctx, StagePrepress)
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if err := d.Nak(); err != nil {
			t.Fatalf("Nak() error = %v", err)
		}

		again, err := q.Dequeue(ctx, StagePrepress)
		if err != nil {
			t.Fatalf("Dequeue() after Nak error = %v", err)
		}
		if again.Job.ID != job.ID {
			t.Errorf("redelivered job = %s, want %s", again.Job.ID, job.ID)
		}
		_ = again.Ack()
	})

	t.Run("unacked job redelivers after visibility timeout", func(t *testing.T) {
		q := NewMemoryQueue()
		q.VisibilityTimeout = 50 * time.Millisecond
		defer q.Close()

		job := NewJob("story-1", StagePrepress)
		if err := q.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if _, err := q.Dequeue(ctx, StagePrepress); err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		// Neither ack nor nak; the timer should bring it back.
		again, err := q.Dequeue(ctx, StagePrepress)
		if err != nil {
			t.Fatalf("Dequeue() after timeout error = %v", err)
		}
		if again.Job.ID != job.ID {
			t.Errorf("redelivered job = %s, want %s", again.Job.ID, job.ID)
		}
		_ = again.Ack()
	})

	t.Run("ack prevents redelivery", func(t *testing.T) {
		q := NewMemoryQueue()
		q.VisibilityTimeout = 30 * time.Millisecond
		defer q.Close()

		if err := q.Enqueue(ctx, NewJob("story-1", StagePrepress)); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		d, err := q.Dequeue(ctx, StagePrepress)
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if err := d.Ack(); err != nil {
			t.Fatalf("Ack() error = %v", err)
		}

		time.Sleep(60 * time.Millisecond)
		if _, err := q.Dequeue(ctx, StagePrepress); !errors.Is(err, ErrQueueEmpty) {
			t.Errorf("Dequeue() after Ack error = %v, want ErrQueueEmpty", err)
		}
	})

	t.Run("dequeue honors context cancellation", func(t *testing.T) {
		q := NewMemoryQueue()
		defer q.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := q.Dequeue(cancelled, StagePrepress); !errors.Is(err, context.Canceled) {
			t.Errorf("Dequeue() error = %v, want context.Canceled", err)
		}
	})
}
