package providers

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/storypress/storypress/internal/retry"
)

// Registry holds named text and image providers together with the
// routing tables that map pipeline stages onto them. All maps are
// guarded so config hot-reload can swap them while calls are in
// flight.
type Registry struct {
	mu       sync.RWMutex
	text     map[string]TextProvider
	image    map[string]ImageProvider
	limiters map[string]*RateLimiter

	textRouting  RoutingTable
	imageRouting RoutingTable

	textPolicy   retry.Policy
	visionPolicy retry.Policy
	imagePolicy  retry.Policy

	logger *slog.Logger
}

// RegistryConfig defines the providers and routing to instantiate.
type RegistryConfig struct {
	// Text and Image map provider names to their config.
	Text  map[string]ProviderConfig
	Image map[string]ProviderConfig

	TextRouting  RoutingTable
	ImageRouting RoutingTable

	Logger *slog.Logger
}

// ProviderConfig describes one provider instance with a resolved API key.
type ProviderConfig struct {
	Type      string  // "openai", "gemini", "mock"
	APIKey    string  // Resolved API key
	Model     string  // Default model name
	BaseURL   string  // Optional (tests)
	RateLimit float64 // Requests per second
	Enabled   bool
}

// NewRegistry creates an empty registry with the given routing tables.
func NewRegistry(textRouting, imageRouting RoutingTable) *Registry {
	return &Registry{
		text:         make(map[string]TextProvider),
		image:        make(map[string]ImageProvider),
		limiters:     make(map[string]*RateLimiter),
		textRouting:  textRouting,
		imageRouting: imageRouting,
		textPolicy:   retry.TextPolicy,
		visionPolicy: retry.VisionPolicy,
		imagePolicy:  retry.ImagePolicy,
		logger:       slog.Default(),
	}
}

// SetRetryPolicies overrides the per-class retry policies. Must be
// called before the registry serves requests.
func (r *Registry) SetRetryPolicies(text, vision, image retry.Policy) {
	r.textPolicy = text
	r.visionPolicy = vision
	r.imagePolicy = image
}

// NewRegistryFromConfig creates a registry with providers based on
// configuration. Only enabled providers with an API key are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry(cfg.TextRouting, cfg.ImageRouting)
	if cfg.Logger != nil {
		r.logger = cfg.Logger
	}

	for name, pc := range cfg.Text {
		if !pc.Enabled {
			continue
		}
		p := createTextProvider(pc)
		if p == nil {
			r.logger.Warn("unknown text provider type", "name", name, "type", pc.Type)
			continue
		}
		r.RegisterText(name, p, pc.RateLimit)
	}

	for name, pc := range cfg.Image {
		if !pc.Enabled {
			continue
		}
		p := createImageProvider(pc)
		if p == nil {
			r.logger.Warn("unknown image provider type", "name", name, "type", pc.Type)
			continue
		}
		r.RegisterImage(name, p, pc.RateLimit)
	}

	return r
}

func createTextProvider(cfg ProviderConfig) TextProvider {
	switch cfg.Type {
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
	case "gemini":
		return NewGeminiProvider(GeminiConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
	case "mock":
		return NewMockTextProvider()
	default:
		return nil
	}
}

func createImageProvider(cfg ProviderConfig) ImageProvider {
	switch cfg.Type {
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
	case "gemini":
		return NewGeminiProvider(GeminiConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
	case "mock":
		return NewMockImageProvider()
	default:
		return nil
	}
}

// Reload replaces the registered providers, limiters, and routing
// tables with those from cfg. In-flight calls finish against the
// providers they resolved; new calls see the new configuration.
func (r *Registry) Reload(cfg RegistryConfig) {
	text := make(map[string]TextProvider)
	image := make(map[string]ImageProvider)
	limiters := make(map[string]*RateLimiter)

	for name, pc := range cfg.Text {
		if !pc.Enabled {
			continue
		}
		p := createTextProvider(pc)
		if p == nil {
			r.logger.Warn("unknown text provider type", "name", name, "type", pc.Type)
			continue
		}
		text[name] = p
		if pc.RateLimit > 0 {
			limiters[name] = NewRateLimiter(pc.RateLimit)
		}
	}
	for name, pc := range cfg.Image {
		if !pc.Enabled {
			continue
		}
		p := createImageProvider(pc)
		if p == nil {
			r.logger.Warn("unknown image provider type", "name", name, "type", pc.Type)
			continue
		}
		image[name] = p
		if pc.RateLimit > 0 {
			limiters[name] = NewRateLimiter(pc.RateLimit)
		}
	}

	r.mu.Lock()
	r.text = text
	r.image = image
	r.limiters = limiters
	r.textRouting = cfg.TextRouting
	r.imageRouting = cfg.ImageRouting
	r.mu.Unlock()
	r.logger.Info("provider registry reloaded", "text", len(text), "image", len(image))
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterText registers a text provider by name. A rateLimit of 0
// disables rate limiting for the provider.
func (r *Registry) RegisterText(name string, p TextProvider, rateLimit float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text[name] = p
	if rateLimit > 0 {
		r.limiters[name] = NewRateLimiter(rateLimit)
	}
	r.logger.Info("registered text provider", "name", name)
}

// RegisterImage registers an image provider by name.
func (r *Registry) RegisterImage(name string, p ImageProvider, rateLimit float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.image[name] = p
	if rateLimit > 0 {
		r.limiters[name] = NewRateLimiter(rateLimit)
	}
	r.logger.Info("registered image provider", "name", name, "capabilities", p.Capabilities())
}

// GetText returns a text provider by name.
func (r *Registry) GetText(name string) (TextProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.text[name]
	if !ok {
		return nil, fmt.Errorf("%w: text provider %q", ErrNoProvider, name)
	}
	return p, nil
}

// GetImage returns an image provider by name.
func (r *Registry) GetImage(name string) (ImageProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.image[name]
	if !ok {
		return nil, fmt.Errorf("%w: image provider %q", ErrNoProvider, name)
	}
	return p, nil
}

// ListText returns all registered text provider names.
func (r *Registry) ListText() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.text))
	for name := range r.text {
		names = append(names, name)
	}
	return names
}

// ListImage returns all registered image provider names.
func (r *Registry) ListImage() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.image))
	for name := range r.image {
		names = append(names, name)
	}
	return names
}

// textRoute resolves a text stage against the current routing table.
func (r *Registry) textRoute(stage Stage) route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textRouting.routeFor(stage)
}

// imageRoute resolves an image or vision stage against the current
// routing table.
func (r *Registry) imageRoute(stage Stage) route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.imageRouting.routeFor(stage)
}

func (r *Registry) limiter(name string) *RateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}
