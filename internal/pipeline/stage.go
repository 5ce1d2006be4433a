// Package pipeline runs stories through the production stages, from
// brief extraction to print tracking. Each stage has its own queue and
// worker pool; a story advances one stage at a time and every stage
// handler is safe to run more than once for the same story.
package pipeline

import "fmt"

// Stage identifies one step of the production pipeline.
type Stage string

const (
	StageBriefExtract   Stage = "brief.extract"
	StageStoryReason    Stage = "story.reason"
	StageAnalyzeUploads Stage = "images.analyze_uploads"
	StageSceneBreakdown Stage = "story.scene_breakdown"
	StageGenerateBatch  Stage = "images.generate_batch"
	StagePrepress       Stage = "images.prepress"
	StageComposeCovers  Stage = "covers.compose"
	StageComposePDF     Stage = "layout.compose_pdf"
	StagePrintSubmit    Stage = "print.submit"
	StagePrintTrack     Stage = "print.track"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageBriefExtract,
	StageStoryReason,
	StageAnalyzeUploads,
	StageSceneBreakdown,
	StageGenerateBatch,
	StagePrepress,
	StageComposeCovers,
	StageComposePDF,
	StagePrintSubmit,
	StagePrintTrack,
}

// Next returns the stage after s, or "" when s is the last stage.
func (s Stage) Next() Stage {
	for i, stage := range Stages {
		if stage == s && i+1 < len(Stages) {
			return Stages[i+1]
		}
	}
	return ""
}

// Valid reports whether s names a known stage.
func (s Stage) Valid() bool {
	for _, stage := range Stages {
		if stage == s {
			return true
		}
	}
	return false
}

// ParseStage converts a string to a Stage, rejecting unknown names.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.Valid() {
		return "", fmt.Errorf("unknown pipeline stage %q", s)
	}
	return stage, nil
}
