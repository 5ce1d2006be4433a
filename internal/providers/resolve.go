package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/storypress/storypress/internal/retry"
)

// Configuration errors. These fail fast and are distinct from provider
// call errors so operators can tell "the service is down" apart from
// "the service was never wired up".
var (
	ErrNoProvider = errors.New("no provider configured")
	ErrNoModel    = errors.New("no model configured")
)

// CallText resolves the stage to a provider chain and invokes each
// candidate under the text retry policy, returning the first success.
// The response always carries the resolved model id.
func (r *Registry) CallText(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	rt := r.textRoute(req.Stage)
	model := req.Model
	if model == "" {
		model = rt.model
	}
	if model == "" {
		return nil, fmt.Errorf("%w: text stage %q", ErrNoModel, req.Stage)
	}
	if len(rt.candidates) == 0 {
		return nil, fmt.Errorf("%w: text stage %q", ErrNoProvider, req.Stage)
	}

	attempted := 0
	var lastErr error
	for _, name := range rt.candidates {
		p, err := r.GetText(name)
		if err != nil {
			lastErr = err
			continue
		}
		attempted++

		if err := r.waitLimiter(ctx, name); err != nil {
			return nil, err
		}

		call := *req
		call.Model = model
		resp, err := retry.Do(ctx, r.textPolicy, func() (*GenerationResponse, error) {
			return p.Call(ctx, &call)
		})
		if err == nil {
			resp.Provider = p.Name()
			resp.Model = model
			return resp, nil
		}
		if !retry.IsRetryable(err) {
			// Fatal: no further candidates.
			return nil, fmt.Errorf("text provider %s: %w", name, err)
		}
		lastErr = err
		r.logger.Warn("text provider exhausted, trying next candidate",
			"provider", name, "stage", req.Stage, "error", err)
	}

	if attempted == 0 {
		return nil, fmt.Errorf("%w: text stage %q (candidates %v unregistered)", ErrNoProvider, req.Stage, rt.candidates)
	}
	return nil, fmt.Errorf("all text providers failed for stage %q: %w", req.Stage, lastErr)
}

// GenerateImage resolves the stage and invokes candidate image
// providers under the image retry policy.
func (r *Registry) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	rt := r.imageRoute(req.Stage)
	model := req.Model
	if model == "" {
		model = rt.model
	}
	if model == "" {
		return nil, fmt.Errorf("%w: image stage %q", ErrNoModel, req.Stage)
	}
	if len(rt.candidates) == 0 {
		return nil, fmt.Errorf("%w: image stage %q", ErrNoProvider, req.Stage)
	}

	attempted := 0
	var lastErr error
	for _, name := range rt.candidates {
		p, err := r.GetImage(name)
		if err != nil {
			lastErr = err
			continue
		}
		if !p.Capabilities().Has(CapabilityGenerate) {
			lastErr = fmt.Errorf("%w: provider %q lacks generate capability", ErrNoProvider, name)
			continue
		}
		attempted++

		if err := r.waitLimiter(ctx, name); err != nil {
			return nil, err
		}

		call := *req
		call.Model = model
		resp, err := retry.Do(ctx, r.imagePolicy, func() (*ImageResponse, error) {
			return p.GenerateImage(ctx, &call)
		})
		if err == nil {
			resp.Provider = p.Name()
			resp.Model = model
			return resp, nil
		}
		if !retry.IsRetryable(err) {
			return nil, fmt.Errorf("image provider %s: %w", name, err)
		}
		lastErr = err
		r.logger.Warn("image provider exhausted, trying next candidate",
			"provider", name, "stage", req.Stage, "error", err)
	}

	if attempted == 0 {
		return nil, fmt.Errorf("%w: image stage %q", ErrNoProvider, req.Stage)
	}
	return nil, fmt.Errorf("all image providers failed for stage %q: %w", req.Stage, lastErr)
}

// AnalyzeImages resolves the stage and invokes candidate vision
// providers under the vision retry policy. Candidates without the
// analyze capability are skipped before dispatch.
func (r *Registry) AnalyzeImages(ctx context.Context, req *AnalysisRequest) (*GenerationResponse, error) {
	rt := r.imageRoute(req.Stage)
	model := req.Model
	if model == "" {
		model = rt.model
	}
	if model == "" {
		return nil, fmt.Errorf("%w: vision stage %q", ErrNoModel, req.Stage)
	}
	if len(rt.candidates) == 0 {
		return nil, fmt.Errorf("%w: vision stage %q", ErrNoProvider, req.Stage)
	}

	attempted := 0
	var lastErr error
	for _, name := range rt.candidates {
		p, err := r.GetImage(name)
		if err != nil {
			lastErr = err
			continue
		}
		if !p.Capabilities().Has(CapabilityAnalyze) {
			lastErr = fmt.Errorf("%w: provider %q lacks analyze capability", ErrNoProvider, name)
			continue
		}
		attempted++

		if err := r.waitLimiter(ctx, name); err != nil {
			return nil, err
		}

		call := *req
		call.Model = model
		resp, err := retry.Do(ctx, r.visionPolicy, func() (*GenerationResponse, error) {
			return p.AnalyzeImages(ctx, &call)
		})
		if err == nil {
			resp.Provider = p.Name()
			resp.Model = model
			return resp, nil
		}
		if !retry.IsRetryable(err) {
			return nil, fmt.Errorf("vision provider %s: %w", name, err)
		}
		lastErr = err
		r.logger.Warn("vision provider exhausted, trying next candidate",
			"provider", name, "stage", req.Stage, "error", err)
	}

	if attempted == 0 {
		return nil, fmt.Errorf("%w: vision stage %q", ErrNoProvider, req.Stage)
	}
	return nil, fmt.Errorf("all vision providers failed for stage %q: %w", req.Stage, lastErr)
}

func (r *Registry) waitLimiter(ctx context.Context, name string) error {
	rl := r.limiter(name)
	if rl == nil {
		return nil
	}
	if err := rl.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", name, err)
	}
	return nil
}
