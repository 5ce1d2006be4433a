package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync/atomic"
	"time"
)

const MockProviderName = "mock"

// MockTextProvider is a TextProvider for testing.
type MockTextProvider struct {
	// Configurable behavior
	ProviderName string
	Latency      time.Duration
	Output       string
	Err          error // returned on every call when set
	FailTimes    int   // fail the first N calls with Err, then succeed

	requestCount atomic.Int64
}

// NewMockTextProvider creates a mock text provider with defaults.
func NewMockTextProvider() *MockTextProvider {
	return &MockTextProvider{
		ProviderName: MockProviderName,
		Output:       "mock output",
	}
}

// Name returns the provider identifier.
func (p *MockTextProvider) Name() string {
	if p.ProviderName == "" {
		return MockProviderName
	}
	return p.ProviderName
}

// Call returns the configured output or error.
func (p *MockTextProvider) Call(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	count := p.requestCount.Add(1)

	if p.Latency > 0 {
		select {
		case <-time.After(p.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.Err != nil && (p.FailTimes == 0 || int(count) <= p.FailTimes) {
		return nil, p.Err
	}

	return &GenerationResponse{
		Output:   p.Output,
		Provider: p.Name(),
		Model:    req.Model,
	}, nil
}

// RequestCount returns the number of calls made.
func (p *MockTextProvider) RequestCount() int64 {
	return p.requestCount.Load()
}

// Reset resets the request counter.
func (p *MockTextProvider) Reset() {
	p.requestCount.Store(0)
}

// Verify interface
var _ TextProvider = (*MockTextProvider)(nil)

// MockImageProvider is an ImageProvider for testing.
type MockImageProvider struct {
	ProviderName string
	Caps         CapabilitySet
	Latency      time.Duration

	// ImagePNG is returned base64 encoded by GenerateImage.
	ImagePNG []byte
	// AnalysisOutput is returned by AnalyzeImages.
	AnalysisOutput string

	Err       error
	FailTimes int

	requestCount atomic.Int64
}

// NewMockImageProvider creates a mock image provider advertising both
// capabilities.
func NewMockImageProvider() *MockImageProvider {
	return &MockImageProvider{
		ProviderName:   "mock-image",
		Caps:           CapabilitySet{CapabilityGenerate, CapabilityAnalyze},
		AnalysisOutput: "mock analysis",
	}
}

// Name returns the provider identifier.
func (p *MockImageProvider) Name() string {
	if p.ProviderName == "" {
		return "mock-image"
	}
	return p.ProviderName
}

// Capabilities returns the configured capability set.
func (p *MockImageProvider) Capabilities() CapabilitySet {
	return p.Caps
}

// GenerateImage returns the configured PNG base64 encoded.
func (p *MockImageProvider) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	if err := p.maybeFail(ctx); err != nil {
		return nil, err
	}
	return &ImageResponse{
		ImageBase64: encodeBase64(p.ImagePNG),
		MimeType:    "image/png",
		Provider:    p.Name(),
		Model:       req.Model,
	}, nil
}

// AnalyzeImages returns the configured analysis output.
func (p *MockImageProvider) AnalyzeImages(ctx context.Context, req *AnalysisRequest) (*GenerationResponse, error) {
	if !p.Caps.Has(CapabilityAnalyze) {
		return nil, fmt.Errorf("mock image provider: analyze capability not configured")
	}
	if err := p.maybeFail(ctx); err != nil {
		return nil, err
	}
	return &GenerationResponse{
		Output:   p.AnalysisOutput,
		Provider: p.Name(),
		Model:    req.Model,
	}, nil
}

func (p *MockImageProvider) maybeFail(ctx context.Context) error {
	count := p.requestCount.Add(1)

	if p.Latency > 0 {
		select {
		case <-time.After(p.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if p.Err != nil && (p.FailTimes == 0 || int(count) <= p.FailTimes) {
		return p.Err
	}
	return nil
}

// RequestCount returns the number of calls made.
func (p *MockImageProvider) RequestCount() int64 {
	return p.requestCount.Load()
}

// Reset resets the request counter.
func (p *MockImageProvider) Reset() {
	p.requestCount.Store(0)
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Verify interface
var _ ImageProvider = (*MockImageProvider)(nil)
