package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config tunes the pipeline's workers and retry limits.
type Config struct {
	// Workers is the pool size per stage; stages absent from the map
	// use DefaultWorkers.
	Workers        map[Stage]int
	DefaultWorkers int

	// MaxAttempts bounds how often a failing stage is retried before
	// the story is marked failed.
	MaxAttempts uint

	// TrackMaxAttempts and TrackPollInterval govern the print tracking
	// stage, which polls until the external job completes.
	TrackMaxAttempts  uint
	TrackPollInterval time.Duration
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		DefaultWorkers:    2,
		MaxAttempts:       3,
		TrackMaxAttempts:  48,
		TrackPollInterval: 30 * time.Second,
	}
}

// Pipeline owns the stage queues and worker pools.
type Pipeline struct {
	queue    Queue
	store    Store
	handlers *Handlers
	logger   *slog.Logger
	cfg      Config

	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// New creates a pipeline over the given queue, store, and handlers.
func New(queue Queue, store Store, handlers *Handlers, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultWorkers <= 0 {
		cfg.DefaultWorkers = DefaultConfig().DefaultWorkers
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.TrackMaxAttempts == 0 {
		cfg.TrackMaxAttempts = DefaultConfig().TrackMaxAttempts
	}
	if cfg.TrackPollInterval <= 0 {
		cfg.TrackPollInterval = DefaultConfig().TrackPollInterval
	}
	return &Pipeline{
		queue:    queue,
		store:    store,
		handlers: handlers,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start launches the per-stage worker pools. Workers exit when ctx is
// cancelled; call Wait to block until they have drained.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for _, stage := range Stages {
		count := p.cfg.DefaultWorkers
		if n, ok := p.cfg.Workers[stage]; ok && n > 0 {
			count = n
		}
		for i := 0; i < count; i++ {
			w := &worker{
				id:       i,
				stage:    stage,
				queue:    p.queue,
				store:    p.store,
				handlers: p.handlers,
				logger:   p.logger.With("worker", fmt.Sprintf("%s/%d", stage, i)),
				cfg:      p.cfg,
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				w.run(ctx)
			}()
		}
		p.logger.Debug("stage workers started", "stage", stage, "count", count)
	}
	p.logger.Info("pipeline started", "stages", len(Stages))
}

// Wait blocks until all workers have stopped.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Submit stores a new story and enqueues its first stage.
func (p *Pipeline) Submit(ctx context.Context, story *Story) error {
	if story.ID == "" {
		return fmt.Errorf("story has no ID")
	}
	if err := p.store.Put(story); err != nil {
		return fmt.Errorf("failed to store story: %w", err)
	}
	if err := p.queue.Enqueue(ctx, NewJob(story.ID, StageBriefExtract)); err != nil {
		return fmt.Errorf("failed to enqueue story: %w", err)
	}
	p.logger.Info("story submitted", "story", story.ID, "title", story.Title)
	return nil
}

// Resume re-enqueues a story at its current stage, used after a restart
// or to retry a failed story from where it stopped.
func (p *Pipeline) Resume(ctx context.Context, storyID string) error {
	story, err := p.store.Update(storyID, func(s *Story) error {
		if s.Status == StatusCancelled || s.Status == StatusDone {
			return fmt.Errorf("story %s is %s", s.ID, s.Status)
		}
		s.Status = StatusQueued
		s.LastError = ""
		s.FailedStage = ""
		s.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	return p.queue.Enqueue(ctx, NewJob(story.ID, story.CurrentStage))
}

// Cancel marks a story cancelled. In-flight and future stage jobs for
// it are discarded when a worker picks them up.
func (p *Pipeline) Cancel(storyID string) error {
	_, err := p.store.Update(storyID, func(s *Story) error {
		if s.Terminal() {
			return fmt.Errorf("story %s is already %s", s.ID, s.Status)
		}
		s.Status = StatusCancelled
		s.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Info("story cancelled", "story", storyID)
	return nil
}
