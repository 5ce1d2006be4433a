package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/storypress/storypress/internal/providers"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.TextProviders) != 2 || len(cfg.ImageProviders) != 2 {
		t.Errorf("default providers = %d text, %d image, want 2 and 2",
			len(cfg.TextProviders), len(cfg.ImageProviders))
	}
	if cfg.TextRouting.Primary != "openai" || cfg.TextRouting.Fallback != "gemini" {
		t.Errorf("text routing = %s/%s, want openai/gemini",
			cfg.TextRouting.Primary, cfg.TextRouting.Fallback)
	}
	if cfg.Prepress.TargetWidth != 2433 || cfg.Prepress.TargetHeight != 2433 {
		t.Errorf("prepress canvas = %dx%d, want 2433x2433",
			cfg.Prepress.TargetWidth, cfg.Prepress.TargetHeight)
	}
	if cfg.Pipeline.Queue != "memory" {
		t.Errorf("default queue = %s, want memory", cfg.Pipeline.Queue)
	}
	if cfg.Print.Type != "mock" {
		t.Errorf("default print type = %s, want mock", cfg.Print.Type)
	}
	for name, pc := range cfg.TextProviders {
		if !strings.Contains(pc.APIKey, "${") {
			t.Errorf("provider %s API key %q is not an env reference", name, pc.APIKey)
		}
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("STORYPRESS_TEST_KEY", "sk-12345")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"resolves reference", "${STORYPRESS_TEST_KEY}", "sk-12345"},
		{"resolves embedded reference", "prefix-${STORYPRESS_TEST_KEY}", "prefix-sk-12345"},
		{"unset variable becomes empty", "${STORYPRESS_UNSET_VAR_XYZ}", ""},
		{"plain string untouched", "sk-literal", "sk-literal"},
		{"empty string untouched", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveEnvVars(tt.input); got != tt.want {
				t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToRegistryConfig(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "resolved-key")

	cfg := &Config{
		TextProviders: map[string]ProviderCfg{
			"primary": {Type: "openai", Model: "gpt-4o", APIKey: "${TEST_PROVIDER_KEY}", Enabled: true},
		},
		ImageProviders: map[string]ProviderCfg{
			"artist": {Type: "gemini", Model: "img-model", APIKey: "literal", RateLimit: 0.5, Enabled: true},
		},
		TextRouting: RoutingCfg{
			Primary:      "primary",
			DefaultModel: "gpt-4o",
			Models:       map[string]string{"brief_extraction": "gpt-4o-mini"},
		},
		ImageRouting: RoutingCfg{
			Primary: "artist",
			Overrides: map[string]StageRouteCfg{
				"vision_score": {Primary: "other", Model: "vision-model"},
			},
		},
	}

	rc := cfg.ToRegistryConfig()

	if rc.Text["primary"].APIKey != "resolved-key" {
		t.Errorf("text API key = %q, want env-resolved value", rc.Text["primary"].APIKey)
	}
	if rc.Image["artist"].APIKey != "literal" {
		t.Errorf("image API key = %q, want literal passthrough", rc.Image["artist"].APIKey)
	}
	if rc.TextRouting.Models[providers.StageBriefExtraction] != "gpt-4o-mini" {
		t.Error("per-stage model mapping lost in conversion")
	}
	ov, ok := rc.ImageRouting.Overrides[providers.StageVisionScore]
	if !ok || ov.Primary != "other" || ov.Model != "vision-model" {
		t.Errorf("stage override = %+v, want primary other with vision-model", ov)
	}
}

func TestTrackPollDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"", 30 * time.Second},
		{"garbage", 30 * time.Second},
		{"-5s", 30 * time.Second},
	}
	for _, tt := range tests {
		pc := PipelineCfg{TrackPollInterval: tt.input}
		if got := pc.TrackPollDuration(); got != tt.want {
			t.Errorf("TrackPollDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Storypress configuration") {
		t.Error("written config missing the explanatory header")
	}
	for _, section := range []string{"text_providers:", "image_providers:", "prepress:", "pipeline:", "print:"} {
		if !strings.Contains(content, section) {
			t.Errorf("written config missing section %s", section)
		}
	}
}
