package config

// DefaultConfig returns configuration with sensible defaults: OpenAI
// primary with Gemini fallback for both text and image work, print
// canvas geometry matching the production trim, and the in-process
// queue.
func DefaultConfig() *Config {
	return &Config{
		TextProviders: map[string]ProviderCfg{
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   true,
			},
			"gemini": {
				Type:      "gemini",
				Model:     "gemini-2.0-flash",
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   true,
			},
		},
		ImageProviders: map[string]ProviderCfg{
			"openai": {
				Type:      "openai",
				Model:     "gpt-image-1",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 0.5,
				Enabled:   true,
			},
			"gemini": {
				Type:      "gemini",
				Model:     "gemini-2.5-flash-image",
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: 0.5,
				Enabled:   true,
			},
		},
		TextRouting: RoutingCfg{
			Primary:      "openai",
			Fallback:     "gemini",
			DefaultModel: "gpt-4o",
			Models: map[string]string{
				"brief_extraction": "gpt-4o-mini",
			},
		},
		ImageRouting: RoutingCfg{
			Primary:      "openai",
			Fallback:     "gemini",
			DefaultModel: "gpt-image-1",
			Overrides: map[string]StageRouteCfg{
				"vision_score": {
					Primary: "gemini",
					Model:   "gemini-2.0-flash",
				},
				"overlay_position": {
					Primary: "gemini",
					Model:   "gemini-2.0-flash",
				},
			},
		},
		Prepress: PrepressCfg{
			BleedPercent:   3.5,
			TargetWidth:    2433,
			TargetHeight:   2433,
			EdgeSampleSize: 24,
		},
		Overlay: OverlayCfg{
			FontSize:         64,
			LineSpacing:      86,
			TextColor:        "#1f1f1f",
			TextWidthPercent: 0.86,
			BorderPercent:    0.12,
			VisionPlacement:  true,
		},
		Pipeline: PipelineCfg{
			Queue:             "memory",
			NatsURL:           "nats://127.0.0.1:4222",
			NatsStream:        "STORYPRESS",
			DefaultWorkers:    2,
			Workers:           map[string]int{"images.generate_batch": 4},
			MaxAttempts:       3,
			TrackMaxAttempts:  48,
			TrackPollInterval: "30s",
			VisionScore:       true,
		},
		Print: PrintCfg{
			Type:       "mock",
			APIKey:     "${PRINT_API_KEY}",
			ICCProfile: "FOGRA51",
		},
	}
}
