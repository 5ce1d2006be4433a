package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	GeminiName    = "gemini"
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	geminiDefaultTextModel  = "gemini-2.0-flash"
	geminiDefaultImageModel = "gemini-2.5-flash-image"
)

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string // Optional (tests)
	DefaultModel string
	Timeout      time.Duration
	HTTPClient   *http.Client // Optional (tests)
}

// GeminiProvider implements TextProvider and ImageProvider against the
// Generative Language API over plain HTTP.
type GeminiProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &GeminiProvider{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       client,
	}
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return GeminiName
}

// Capabilities returns the supported image operations.
func (p *GeminiProvider) Capabilities() CapabilitySet {
	return CapabilitySet{CapabilityGenerate, CapabilityAnalyze}
}

// Call sends a text generation request.
func (p *GeminiProvider) Call(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		model = geminiDefaultTextModel
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: req.Prompt}}},
		},
	}
	if req.InputFormat == "json" {
		body.GenerationConfig = &geminiGenerationConfig{ResponseMimeType: "application/json"}
	}

	resp, err := p.doRequest(ctx, model, &body)
	if err != nil {
		return nil, err
	}

	text, err := firstText(resp)
	if err != nil {
		return nil, err
	}
	return &GenerationResponse{
		Output:   text,
		Provider: GeminiName,
		Model:    model,
	}, nil
}

// GenerateImage renders an image from a prompt. Gemini returns image
// bytes as an inline data part.
func (p *GeminiProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	model := req.Model
	if model == "" {
		model = geminiDefaultImageModel
	}

	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt = fmt.Sprintf("%s\n\nAspect ratio: %s", prompt, req.AspectRatio)
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	resp, err := p.doRequest(ctx, model, &body)
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return &ImageResponse{
					ImageBase64: part.InlineData.Data,
					MimeType:    part.InlineData.MimeType,
					Provider:    GeminiName,
					Model:       model,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini image generation: no inline image in response")
}

// AnalyzeImages runs a vision prompt over the given images.
func (p *GeminiProvider) AnalyzeImages(ctx context.Context, req *AnalysisRequest) (*GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		model = geminiDefaultTextModel
	}

	parts := []geminiPart{{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(img),
			},
		})
	}
	// The Generative Language API takes inline bytes only; URLs are
	// fetched by the caller before dispatch.
	if len(req.ImageURLs) > 0 && len(req.Images) == 0 {
		return nil, fmt.Errorf("gemini vision analysis: image URLs not supported, pass raw bytes")
	}

	body := geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
	}

	resp, err := p.doRequest(ctx, model, &body)
	if err != nil {
		return nil, err
	}

	text, err := firstText(resp)
	if err != nil {
		return nil, err
	}
	return &GenerationResponse{
		Output:   text,
		Provider: GeminiName,
		Model:    model,
	}, nil
}

// doRequest posts a generateContent request. Error messages include the
// HTTP status so the retry classifier can pick up 429/5xx.
func (p *GeminiProvider) doRequest(ctx context.Context, model string, body *geminiRequest) (*geminiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &gr, nil
}

func firstText(resp *geminiResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return sb.String(), nil
}

// dataURL encodes raw image bytes as a data URL for APIs that take
// image references by URL.
func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Gemini API types

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text,omitempty"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
}
