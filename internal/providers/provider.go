package providers

import (
	"context"
	"time"
)

// Stage tags a generation request with the model stage it belongs to.
// Stages form a closed set: routing tables and model tables are keyed
// by stage, so an unknown stage fails resolution before dispatch.
type Stage string

// Text stages.
const (
	StageBriefExtraction       Stage = "brief_extraction"
	StageStoryOutline          Stage = "story_outline"
	StageSceneBreakdown        Stage = "scene_breakdown"
	StageImageAnalysisChild    Stage = "image_analysis_child"
	StageImageAnalysisLocation Stage = "image_analysis_location"
)

// Image and vision stages.
const (
	StageCoverFront      Stage = "cover_front"
	StageInteriorPage    Stage = "interior_page"
	StageVisionScore     Stage = "vision_score"
	StageOverlayPosition Stage = "overlay_position"
)

// GenerationRequest is a text generation request.
type GenerationRequest struct {
	Stage       Stage         `json:"stage"`
	Prompt      string        `json:"prompt"`
	InputFormat string        `json:"input_format,omitempty"` // "text" (default) or "json"
	Model       string        `json:"model,omitempty"`        // explicit override, bypasses the model table
	Timeout     time.Duration `json:"-"`
}

// GenerationResponse is the raw output of a text or vision call. Model
// always carries the *resolved* model id, even if the provider echoed a
// different one.
type GenerationResponse struct {
	Output   string `json:"output"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ImageRequest is an image generation request.
type ImageRequest struct {
	Stage       Stage         `json:"stage"`
	Prompt      string        `json:"prompt"`
	Model       string        `json:"model,omitempty"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	AspectRatio string        `json:"aspect_ratio,omitempty"`
	Timeout     time.Duration `json:"-"`
}

// ImageResponse carries generated image data. Providers return either a
// URL or a base64 payload depending on their API.
type ImageResponse struct {
	ImageURL      string `json:"image_url,omitempty"`
	ImageBase64   string `json:"image_base64,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
}

// AnalysisRequest is a vision analysis request over one or more images.
type AnalysisRequest struct {
	Stage     Stage         `json:"stage"`
	Prompt    string        `json:"prompt"`
	ImageURLs []string      `json:"image_urls,omitempty"`
	Images    [][]byte      `json:"-"` // raw bytes, base64 encoded in the request
	Model     string        `json:"model,omitempty"`
	Timeout   time.Duration `json:"-"`
}

// Capability identifies one operation an image provider supports.
type Capability string

const (
	CapabilityGenerate Capability = "generate"
	CapabilityAnalyze  Capability = "analyze"
)

// CapabilitySet is the advertised capability list of an image provider.
// The registry checks membership before dispatch instead of probing for
// missing methods at call time.
type CapabilitySet []Capability

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	for _, have := range s {
		if have == c {
			return true
		}
	}
	return false
}

// TextProvider is a named text generation backend.
type TextProvider interface {
	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string

	// Call sends a text generation request.
	Call(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error)
}

// ImageProvider is a named image/vision backend. AnalyzeImages may only
// be invoked when Capabilities includes CapabilityAnalyze.
type ImageProvider interface {
	// Name returns the provider identifier.
	Name() string

	// Capabilities returns the operations this provider supports.
	Capabilities() CapabilitySet

	// GenerateImage renders an image from a prompt.
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)

	// AnalyzeImages runs a vision prompt over the given images.
	AnalyzeImages(ctx context.Context, req *AnalysisRequest) (*GenerationResponse, error)
}
