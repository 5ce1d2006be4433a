package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// worker pulls jobs for one stage and runs them through the handler.
type worker struct {
	id       int
	stage    Stage
	queue    Queue
	store    Store
	handlers *Handlers
	logger   *slog.Logger
	cfg      Config
}

func (w *worker) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		delivery, err := w.queue.Dequeue(ctx, w.stage)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("dequeue failed", "stage", w.stage, "error", err)
			continue
		}
		w.process(ctx, delivery)
	}
}

func (w *worker) process(ctx context.Context, delivery Delivery) {
	job := delivery.Job
	log := w.logger.With("stage", job.Stage, "story", job.StoryID, "attempt", job.Attempt)

	story, err := w.store.Get(job.StoryID)
	if err != nil {
		// Unknown story; the job can never succeed.
		log.Error("dropping job for unknown story", "error", err)
		_ = delivery.Ack()
		return
	}

	if story.Status == StatusCancelled {
		log.Info("skipping stage for cancelled story")
		_ = delivery.Ack()
		return
	}

	if _, err := w.store.Update(job.StoryID, func(s *Story) error {
		s.Status = StatusRunning
		s.CurrentStage = job.Stage
		if s.Attempts == nil {
			s.Attempts = make(map[Stage]uint)
		}
		s.Attempts[job.Stage] = job.Attempt
		s.UpdatedAt = time.Now().UTC()
		return nil
	}); err != nil {
		log.Error("failed to mark story running", "error", err)
		_ = delivery.Nak()
		return
	}

	handler, err := w.handlers.Handler(job.Stage)
	if err != nil {
		w.fail(job, err)
		_ = delivery.Ack()
		return
	}

	start := time.Now()
	err = handler(ctx, story)
	switch {
	case err == nil:
		log.Info("stage complete", "duration", time.Since(start).Round(time.Millisecond))
		w.advance(ctx, job)
		_ = delivery.Ack()

	case errors.Is(err, ErrPrintPending):
		w.requeueTracking(ctx, job, err, log)
		_ = delivery.Ack()

	case ctx.Err() != nil:
		// Shutdown mid-handler; leave the job for redelivery.
		_ = delivery.Nak()

	default:
		if job.Attempt < w.cfg.MaxAttempts {
			log.Warn("stage failed, re-enqueueing", "error", err)
			w.requeue(ctx, job.Retry())
		} else {
			log.Error("stage failed permanently", "error", err)
			w.fail(job, err)
		}
		_ = delivery.Ack()
	}
}

// advance moves the story to the next stage, or closes it after the
// last one. Stories carrying review notes finish in needs_review so an
// operator checks the flagged artwork before the book ships.
func (w *worker) advance(ctx context.Context, job Job) {
	next := job.Stage.Next()
	if next == "" {
		if _, err := w.store.Update(job.StoryID, func(s *Story) error {
			s.Status = StatusDone
			if len(s.ReviewNotes) > 0 {
				s.Status = StatusNeedsReview
			}
			s.UpdatedAt = time.Now().UTC()
			return nil
		}); err != nil {
			w.logger.Error("failed to mark story done", "story", job.StoryID, "error", err)
		}
		return
	}
	w.requeue(ctx, NewJob(job.StoryID, next))
}

// requeueTracking handles the print tracking stage, which polls an
// external service and is expected to come back many times before the
// job ships.
func (w *worker) requeueTracking(ctx context.Context, job Job, cause error, log *slog.Logger) {
	if job.Attempt >= w.cfg.TrackMaxAttempts {
		log.Error("print job never completed", "error", cause)
		w.fail(job, fmt.Errorf("print tracking gave up after %d polls: %w", job.Attempt, cause))
		return
	}
	log.Info("print job still in progress, polling again")
	select {
	case <-time.After(w.cfg.TrackPollInterval):
	case <-ctx.Done():
		return
	}
	w.requeue(ctx, job.Retry())
}

func (w *worker) requeue(ctx context.Context, job Job) {
	if err := w.queue.Enqueue(ctx, job); err != nil {
		w.logger.Error("failed to enqueue job", "stage", job.Stage, "story", job.StoryID, "error", err)
		w.fail(job, fmt.Errorf("failed to enqueue %s: %w", job.Stage, err))
	}
}

func (w *worker) fail(job Job, cause error) {
	if _, err := w.store.Update(job.StoryID, func(s *Story) error {
		s.Status = StatusFailed
		s.FailedStage = job.Stage
		s.LastError = cause.Error()
		s.UpdatedAt = time.Now().UTC()
		return nil
	}); err != nil {
		w.logger.Error("failed to mark story failed", "story", job.StoryID, "error", err)
	}
}
