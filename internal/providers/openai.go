package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName              = "openai"
	openAIDefaultTextModel  = "gpt-4o"
	openAIDefaultImageModel = "gpt-image-1"
)

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional (tests)
	DefaultModel string
	Timeout      time.Duration
	HTTPClient   *http.Client // Optional (tests)
}

// OpenAIProvider implements TextProvider and ImageProvider using the
// official OpenAI SDK. SDK-level retries are disabled; the registry
// wraps every call in its own retry executor.
type OpenAIProvider struct {
	defaultModel string
	client       openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return OpenAIName
}

// Capabilities returns the supported image operations.
func (p *OpenAIProvider) Capabilities() CapabilitySet {
	return CapabilitySet{CapabilityGenerate, CapabilityAnalyze}
}

// Call sends a chat completion request.
func (p *OpenAIProvider) Call(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		model = openAIDefaultTextModel
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.InputFormat == "json" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	opts := requestOpts(req.Timeout)
	resp, err := p.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices in response")
	}

	return &GenerationResponse{
		Output:   resp.Choices[0].Message.Content,
		Provider: OpenAIName,
		Model:    resp.Model,
	}, nil
}

// GenerateImage renders an image from a prompt and returns it base64
// encoded.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	model := req.Model
	if model == "" {
		model = openAIDefaultImageModel
	}

	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(model),
	}
	if size := openAISize(req.Width, req.Height); size != "" {
		params.Size = size
	}

	opts := requestOpts(req.Timeout)
	resp, err := p.client.Images.Generate(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("openai image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai image generation: empty response")
	}

	return &ImageResponse{
		ImageBase64:   resp.Data[0].B64JSON,
		ImageURL:      resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
		MimeType:      "image/png",
		Provider:      OpenAIName,
		Model:         model,
	}, nil
}

// AnalyzeImages runs a vision prompt over the given images using chat
// content parts.
func (p *OpenAIProvider) AnalyzeImages(ctx context.Context, req *AnalysisRequest) (*GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		model = openAIDefaultTextModel
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
	}
	for _, u := range req.ImageURLs {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: u,
		}))
	}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL("image/png", img),
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
	}

	opts := requestOpts(req.Timeout)
	resp, err := p.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("openai vision analysis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai vision analysis: no choices in response")
	}

	return &GenerationResponse{
		Output:   resp.Choices[0].Message.Content,
		Provider: OpenAIName,
		Model:    resp.Model,
	}, nil
}

func requestOpts(timeout time.Duration) []option.RequestOption {
	if timeout <= 0 {
		return nil
	}
	return []option.RequestOption{option.WithRequestTimeout(timeout)}
}

// openAISize maps requested dimensions onto the closest supported
// OpenAI size string. Zero dimensions defer to the API default.
func openAISize(width, height int) openai.ImageGenerateParamsSize {
	switch {
	case width == 0 || height == 0:
		return ""
	case width > height:
		return openai.ImageGenerateParamsSize1536x1024
	case height > width:
		return openai.ImageGenerateParamsSize1024x1536
	default:
		return openai.ImageGenerateParamsSize1024x1024
	}
}

// Verify interfaces
var (
	_ TextProvider  = (*OpenAIProvider)(nil)
	_ ImageProvider = (*OpenAIProvider)(nil)
)
