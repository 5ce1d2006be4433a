package pipeline

import "testing"

func TestStageOrder(t *testing.T) {
	t.Run("ten stages in production order", func(t *testing.T) {
		want := []Stage{
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
		if len(Stages) != len(want) {
			t.Fatalf("len(Stages) = %d, want %d", len(Stages), len(want))
		}
		for i, stage := range want {
			if Stages[i] != stage {
				t.Errorf("Stages[%d] = %s, want %s", i, Stages[i], stage)
			}
		}
	})

	t.Run("Next walks the chain", func(t *testing.T) {
		stage := StageBriefExtract
		steps := 0
		for stage != "" {
			stage = stage.Next()
			steps++
			if steps > len(Stages) {
				t.Fatal("Next() loops")
			}
		}
		if steps != len(Stages) {
			t.Errorf("walked %d steps, want %d", steps, len(Stages))
		}
	})

	t.Run("last stage has no successor", func(t *testing.T) {
		if next := StagePrintTrack.Next(); next != "" {
			t.Errorf("Next() = %s, want empty", next)
		}
	})
}

func TestParseStage(t *testing.T) {
	if _, err := ParseStage("images.prepress"); err != nil {
		t.Errorf("ParseStage(images.prepress) error = %v", err)
	}
	if _, err := ParseStage("nope"); err == nil {
		t.Error("ParseStage(nope) error = nil, want error")
	}
}

func TestJobRoundTrip(t *testing.T) {
	job := NewJob("story-1", StagePrepress)
	if job.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", job.Attempt)
	}

	data, err := job.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := UnmarshalJob(data)
	if err != nil {
		t.Fatalf("UnmarshalJob() error = %v", err)
	}
	if got.ID != job.ID || got.StoryID != job.StoryID || got.Stage != job.Stage {
		t.Errorf("round trip = %+v, want %+v", got, job)
	}

	t.Run("unknown stage rejected", func(t *testing.T) {
		if _, err := UnmarshalJob([]byte(`{"id":"x","story_id":"y","stage":"bogus"}`)); err == nil {
			t.Error("UnmarshalJob() error = nil, want error for bogus stage")
		}
	})

	t.Run("retry bumps attempt with fresh id", func(t *testing.T) {
		again := job.Retry()
		if again.Attempt != 2 {
			t.Errorf("Attempt = %d, want 2", again.Attempt)
		}
		if again.ID == job.ID {
			t.Error("Retry() kept the same job ID")
		}
		if again.Stage != job.Stage || again.StoryID != job.StoryID {
			t.Error("Retry() changed stage or story")
		}
	})
}
