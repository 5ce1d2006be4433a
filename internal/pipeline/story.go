package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Status is a story's lifecycle state.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusRunning     Status = "running"
	StatusNeedsReview Status = "needs_review"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
	StatusDone        Status = "done"
)

// Page is one interior page of a story book.
type Page struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	ScenePrompt  string `json:"scene_prompt"`
	ArtworkPath  string `json:"artwork_path,omitempty"`
	PrepressPath string `json:"prepress_path,omitempty"`
	ComposedPath string `json:"composed_path,omitempty"`
	Position     string `json:"position,omitempty"`
	EdgeColor    string `json:"edge_color,omitempty"`
}

// UploadRef points at a customer-supplied reference photo.
type UploadRef struct {
	Path string `json:"path"`
	Kind string `json:"kind"` // "child" or "location"
}

// Story is the unit of work moving through the pipeline. The store
// holds the authoritative copy; handlers read it at the start of a
// stage and write results back before the stage's job is acked.
type Story struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	ReadingAge   int         `json:"reading_age"`
	Status       Status      `json:"status"`
	CurrentStage Stage       `json:"current_stage"`
	Attempts     map[Stage]uint `json:"attempts,omitempty"`
	LastError    string      `json:"last_error,omitempty"`
	FailedStage  Stage       `json:"failed_stage,omitempty"`

	// RawBrief is the customer's free-form request.
	RawBrief string `json:"raw_brief"`

	// Brief is the structured extraction of the request.
	Brief string `json:"brief,omitempty"`

	// Outline is the reasoned story arc.
	Outline string `json:"outline,omitempty"`

	// ChildDescription and LocationDescription come from analyzing the
	// customer's reference photos.
	ChildDescription    string `json:"child_description,omitempty"`
	LocationDescription string `json:"location_description,omitempty"`

	// SceneJSON is the validated per-page scene breakdown.
	SceneJSON string `json:"scene_json,omitempty"`

	Pages      []Page      `json:"pages,omitempty"`
	UploadRefs []UploadRef `json:"upload_refs,omitempty"`

	CoverPath  string `json:"cover_path,omitempty"`
	PDFPath    string `json:"pdf_path,omitempty"`
	PrintJobID string `json:"print_job_id,omitempty"`

	// ReviewNotes flags artifacts that shipped despite failing a
	// quality gate. A non-empty list lands the finished story in
	// needs_review instead of done.
	ReviewNotes []string `json:"review_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStory creates a queued story from a customer brief.
func NewStory(title, rawBrief string, readingAge int) *Story {
	now := time.Now().UTC()
	return &Story{
		ID:           uuid.New().String(),
		Title:        title,
		ReadingAge:   readingAge,
		Status:       StatusQueued,
		CurrentStage: StageBriefExtract,
		RawBrief:     rawBrief,
		Attempts:     make(map[Stage]uint),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Terminal reports whether the story has reached an end state.
// needs_review is terminal for the pipeline; an operator resumes or
// closes those by hand.
func (s *Story) Terminal() bool {
	switch s.Status {
	case StatusDone, StatusFailed, StatusCancelled, StatusNeedsReview:
		return true
	default:
		return false
	}
}
