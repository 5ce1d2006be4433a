package providers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/storypress/storypress/internal/retry"
)

func testRouting(primary, fallback string) RoutingTable {
	return RoutingTable{
		Primary:      primary,
		Fallback:     fallback,
		DefaultModel: "test-model",
	}
}

// newTestRegistry builds a registry with millisecond retry delays so
// failure paths don't sleep through real backoff windows.
func newTestRegistry(text, image RoutingTable) *Registry {
	r := NewRegistry(text, image)
	fast := retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2.0}
	r.SetRetryPolicies(fast, fast, fast)
	return r
}

func TestCallText(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps resolved provider and model", func(t *testing.T) {
		r := newTestRegistry(testRouting("mock", ""), RoutingTable{})
		r.RegisterText("mock", &MockTextProvider{ProviderName: "mock", Output: "hello"}, 0)

		resp, err := r.CallText(ctx, &GenerationRequest{Stage: StageStoryOutline, Prompt: "p"})
		if err != nil {
			t.Fatalf("CallText() error = %v", err)
		}
		if resp.Output != "hello" {
			t.Errorf("Output = %q, want %q", resp.Output, "hello")
		}
		if resp.Provider != "mock" {
			t.Errorf("Provider = %q, want %q", resp.Provider, "mock")
		}
		if resp.Model != "test-model" {
			t.Errorf("Model = %q, want %q", resp.Model, "test-model")
		}
	})

	t.Run("request model overrides routing model", func(t *testing.T) {
		r := newTestRegistry(testRouting("mock", ""), RoutingTable{})
		r.RegisterText("mock", NewMockTextProvider(), 0)

		resp, err := r.CallText(ctx, &GenerationRequest{Stage: StageStoryOutline, Prompt: "p", Model: "override"})
		if err != nil {
			t.Fatalf("CallText() error = %v", err)
		}
		if resp.Model != "override" {
			t.Errorf("Model = %q, want %q", resp.Model, "override")
		}
	})

	t.Run("falls back after primary exhausts retries", func(t *testing.T) {
		primary := &MockTextProvider{ProviderName: "primary", Err: errors.New("status 503")}
		fallback := &MockTextProvider{ProviderName: "fallback", Output: "rescued"}

		r := newTestRegistry(testRouting("primary", "fallback"), RoutingTable{})
		r.RegisterText("primary", primary, 0)
		r.RegisterText("fallback", fallback, 0)

		resp, err := r.CallText(ctx, &GenerationRequest{Stage: StageBriefExtraction, Prompt: "p"})
		if err != nil {
			t.Fatalf("CallText() error = %v", err)
		}
		if resp.Provider != "fallback" {
			t.Errorf("Provider = %q, want %q", resp.Provider, "fallback")
		}
		if primary.RequestCount() == 0 {
			t.Error("primary was never tried")
		}
	})

	t.Run("fatal error skips fallback", func(t *testing.T) {
		primary := &MockTextProvider{ProviderName: "primary", Err: errors.New("status 401 unauthorized")}
		fallback := &MockTextProvider{ProviderName: "fallback", Output: "rescued"}

		r := newTestRegistry(testRouting("primary", "fallback"), RoutingTable{})
		r.RegisterText("primary", primary, 0)
		r.RegisterText("fallback", fallback, 0)

		_, err := r.CallText(ctx, &GenerationRequest{Stage: StageBriefExtraction, Prompt: "p"})
		if err == nil {
			t.Fatal("CallText() error = nil, want error")
		}
		if fallback.RequestCount() != 0 {
			t.Errorf("fallback called %d times after fatal error, want 0", fallback.RequestCount())
		}
		if primary.RequestCount() != 1 {
			t.Errorf("primary called %d times, want 1 (no retries on fatal)", primary.RequestCount())
		}
	})

	t.Run("all providers failing aggregates the error", func(t *testing.T) {
		r := newTestRegistry(testRouting("a", "b"), RoutingTable{})
		r.RegisterText("a", &MockTextProvider{ProviderName: "a", Err: errors.New("status 503")}, 0)
		r.RegisterText("b", &MockTextProvider{ProviderName: "b", Err: errors.New("status 503")}, 0)

		_, err := r.CallText(ctx, &GenerationRequest{Stage: StageStoryOutline, Prompt: "p"})
		if err == nil {
			t.Fatal("CallText() error = nil, want error")
		}
		if !strings.Contains(err.Error(), "all text providers failed") {
			t.Errorf("error = %v, want aggregate failure", err)
		}
	})

	t.Run("no registered candidates returns ErrNoProvider", func(t *testing.T) {
		r := newTestRegistry(testRouting("ghost", ""), RoutingTable{})
		_, err := r.CallText(ctx, &GenerationRequest{Stage: StageStoryOutline, Prompt: "p"})
		if !errors.Is(err, ErrNoProvider) {
			t.Errorf("error = %v, want ErrNoProvider", err)
		}
	})

	t.Run("missing model returns ErrNoModel", func(t *testing.T) {
		r := newTestRegistry(RoutingTable{Primary: "mock"}, RoutingTable{})
		r.RegisterText("mock", NewMockTextProvider(), 0)
		_, err := r.CallText(ctx, &GenerationRequest{Stage: StageStoryOutline, Prompt: "p"})
		if !errors.Is(err, ErrNoModel) {
			t.Errorf("error = %v, want ErrNoModel", err)
		}
	})
}

func TestGenerateImage(t *testing.T) {
	ctx := context.Background()

	t.Run("returns base64 payload", func(t *testing.T) {
		p := NewMockImageProvider()
		p.ImagePNG = []byte{1, 2, 3}

		r := newTestRegistry(RoutingTable{}, testRouting("mock-image", ""))
		r.RegisterImage("mock-image", p, 0)

		resp, err := r.GenerateImage(ctx, &ImageRequest{Stage: StageInteriorPage, Prompt: "p"})
		if err != nil {
			t.Fatalf("GenerateImage() error = %v", err)
		}
		if resp.ImageBase64 == "" {
			t.Error("ImageBase64 empty")
		}
		if resp.Model != "test-model" {
			t.Errorf("Model = %q, want %q", resp.Model, "test-model")
		}
	})

	t.Run("provider without generate capability is skipped", func(t *testing.T) {
		analyzeOnly := NewMockImageProvider()
		analyzeOnly.ProviderName = "analyze-only"
		analyzeOnly.Caps = CapabilitySet{CapabilityAnalyze}
		full := NewMockImageProvider()
		full.ProviderName = "full"

		r := newTestRegistry(RoutingTable{}, testRouting("analyze-only", "full"))
		r.RegisterImage("analyze-only", analyzeOnly, 0)
		r.RegisterImage("full", full, 0)

		resp, err := r.GenerateImage(ctx, &ImageRequest{Stage: StageCoverFront, Prompt: "p"})
		if err != nil {
			t.Fatalf("GenerateImage() error = %v", err)
		}
		if resp.Provider != "full" {
			t.Errorf("Provider = %q, want %q", resp.Provider, "full")
		}
	})
}

func TestAnalyzeImages(t *testing.T) {
	ctx := context.Background()

	t.Run("stage override routes to a different provider", func(t *testing.T) {
		table := testRouting("gen", "")
		table.Overrides = map[Stage]StageRoute{
			StageVisionScore: {Primary: "scorer", Model: "vision-model"},
		}

		gen := NewMockImageProvider()
		gen.ProviderName = "gen"
		scorer := NewMockImageProvider()
		scorer.ProviderName = "scorer"
		scorer.AnalysisOutput = "8"

		r := newTestRegistry(RoutingTable{}, table)
		r.RegisterImage("gen", gen, 0)
		r.RegisterImage("scorer", scorer, 0)

		resp, err := r.AnalyzeImages(ctx, &AnalysisRequest{Stage: StageVisionScore, Prompt: "rate", Images: [][]byte{{0}}})
		if err != nil {
			t.Fatalf("AnalyzeImages() error = %v", err)
		}
		if resp.Provider != "scorer" {
			t.Errorf("Provider = %q, want %q", resp.Provider, "scorer")
		}
		if resp.Model != "vision-model" {
			t.Errorf("Model = %q, want %q", resp.Model, "vision-model")
		}
		if resp.Output != "8" {
			t.Errorf("Output = %q, want %q", resp.Output, "8")
		}
	})

	t.Run("no analyze-capable provider returns ErrNoProvider", func(t *testing.T) {
		genOnly := NewMockImageProvider()
		genOnly.Caps = CapabilitySet{CapabilityGenerate}

		r := newTestRegistry(RoutingTable{}, testRouting("gen-only", ""))
		r.RegisterImage("gen-only", genOnly, 0)

		_, err := r.AnalyzeImages(ctx, &AnalysisRequest{Stage: StageOverlayPosition, Prompt: "p"})
		if !errors.Is(err, ErrNoProvider) {
			t.Errorf("error = %v, want ErrNoProvider", err)
		}
	})
}
