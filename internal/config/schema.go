package config

// Config holds storypress configuration.
// Stored at: {home}/config.yaml
type Config struct {
	TextProviders  map[string]ProviderCfg `mapstructure:"text_providers" yaml:"text_providers"`
	ImageProviders map[string]ProviderCfg `mapstructure:"image_providers" yaml:"image_providers"`
	TextRouting    RoutingCfg             `mapstructure:"text_routing" yaml:"text_routing"`
	ImageRouting   RoutingCfg             `mapstructure:"image_routing" yaml:"image_routing"`
	Prepress       PrepressCfg            `mapstructure:"prepress" yaml:"prepress"`
	Overlay        OverlayCfg             `mapstructure:"overlay" yaml:"overlay"`
	Pipeline       PipelineCfg            `mapstructure:"pipeline" yaml:"pipeline"`
	Print          PrintCfg               `mapstructure:"print" yaml:"print"`
}

// ProviderCfg configures one model provider.
type ProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "openai", "gemini", "mock"
	Model     string  `mapstructure:"model" yaml:"model"`           // Default model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`     // Optional endpoint override
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// RoutingCfg selects providers and models per stage.
type RoutingCfg struct {
	Primary      string                   `mapstructure:"primary" yaml:"primary"`
	Fallback     string                   `mapstructure:"fallback" yaml:"fallback"`
	DefaultModel string                   `mapstructure:"default_model" yaml:"default_model"`
	Models       map[string]string        `mapstructure:"models" yaml:"models"`
	Overrides    map[string]StageRouteCfg `mapstructure:"overrides" yaml:"overrides"`
}

// StageRouteCfg overrides routing for a single stage.
type StageRouteCfg struct {
	Primary  string `mapstructure:"primary" yaml:"primary"`
	Fallback string `mapstructure:"fallback" yaml:"fallback"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// PrepressCfg configures bleed processing.
type PrepressCfg struct {
	BleedPercent   float64 `mapstructure:"bleed_percent" yaml:"bleed_percent"`
	TargetWidth    int     `mapstructure:"target_width" yaml:"target_width"`
	TargetHeight   int     `mapstructure:"target_height" yaml:"target_height"`
	EdgeSampleSize int     `mapstructure:"edge_sample_size" yaml:"edge_sample_size"`
}

// OverlayCfg configures text rendering inside overlay bands.
type OverlayCfg struct {
	FontSize         float64 `mapstructure:"font_size" yaml:"font_size"`
	LineSpacing      int     `mapstructure:"line_spacing" yaml:"line_spacing"`
	TextColor        string  `mapstructure:"text_color" yaml:"text_color"`
	TextWidthPercent float64 `mapstructure:"text_width_percent" yaml:"text_width_percent"`
	BorderPercent    float64 `mapstructure:"border_percent" yaml:"border_percent"`
	VisionPlacement  bool    `mapstructure:"vision_placement" yaml:"vision_placement"`
}

// PipelineCfg configures workers, retries, and the queue backend.
type PipelineCfg struct {
	Queue             string         `mapstructure:"queue" yaml:"queue"` // "memory" or "nats"
	NatsURL           string         `mapstructure:"nats_url" yaml:"nats_url"`
	NatsStream        string         `mapstructure:"nats_stream" yaml:"nats_stream"`
	DefaultWorkers    int            `mapstructure:"default_workers" yaml:"default_workers"`
	Workers           map[string]int `mapstructure:"workers" yaml:"workers"`
	MaxAttempts       uint           `mapstructure:"max_attempts" yaml:"max_attempts"`
	TrackMaxAttempts  uint           `mapstructure:"track_max_attempts" yaml:"track_max_attempts"`
	TrackPollInterval string         `mapstructure:"track_poll_interval" yaml:"track_poll_interval"`
	VisionScore       bool           `mapstructure:"vision_score" yaml:"vision_score"`
}

// PrintCfg configures the print service connection.
type PrintCfg struct {
	Type       string `mapstructure:"type" yaml:"type"` // "http" or "mock"
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	ICCProfile string `mapstructure:"icc_profile" yaml:"icc_profile"`
}

// GetTextProvider returns a text provider config by name.
func (c *Config) GetTextProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.TextProviders[name]
	return cfg, ok
}

// GetImageProvider returns an image provider config by name.
func (c *Config) GetImageProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.ImageProviders[name]
	return cfg, ok
}

// EnabledTextProviders returns all enabled text providers.
func (c *Config) EnabledTextProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.TextProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EnabledImageProviders returns all enabled image providers.
func (c *Config) EnabledImageProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.ImageProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
