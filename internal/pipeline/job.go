package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of work: run one stage for one story. Jobs are what
// travel through the queues; all story state lives in the store.
type Job struct {
	ID         string    `json:"id"`
	StoryID    string    `json:"story_id"`
	Stage      Stage     `json:"stage"`
	Attempt    uint      `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob creates a first-attempt job for a story stage.
func NewJob(storyID string, stage Stage) Job {
	return Job{
		ID:         uuid.New().String(),
		StoryID:    storyID,
		Stage:      stage,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Retry returns a copy of the job with the attempt counter bumped and a
// fresh ID so redeliveries are distinguishable in logs.
func (j Job) Retry() Job {
	return Job{
		ID:         uuid.New().String(),
		StoryID:    j.StoryID,
		Stage:      j.Stage,
		Attempt:    j.Attempt + 1,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Marshal encodes the job for queue transport.
func (j Job) Marshal() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return data, nil
}

// UnmarshalJob decodes a job from queue transport.
func UnmarshalJob(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if !j.Stage.Valid() {
		return Job{}, fmt.Errorf("job %s has unknown stage %q", j.ID, j.Stage)
	}
	return j, nil
}
