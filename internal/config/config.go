// Package config loads and hot-reloads the storypress configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/storypress/storypress/internal/providers"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("text_providers", defaults.TextProviders)
	viper.SetDefault("image_providers", defaults.ImageProviders)
	viper.SetDefault("text_routing", defaults.TextRouting)
	viper.SetDefault("image_routing", defaults.ImageRouting)
	viper.SetDefault("prepress", defaults.Prepress)
	viper.SetDefault("overlay", defaults.Overlay)
	viper.SetDefault("pipeline", defaults.Pipeline)
	viper.SetDefault("print", defaults.Print)

	// Environment variables with STORYPRESS_ prefix
	viper.SetEnvPrefix("STORYPRESS")
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.storypress")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToRegistryConfig converts the config to a format suitable for
// providers.Registry. It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		Text:         make(map[string]providers.ProviderConfig),
		Image:        make(map[string]providers.ProviderConfig),
		TextRouting:  c.TextRouting.toRoutingTable(),
		ImageRouting: c.ImageRouting.toRoutingTable(),
	}

	for name, pc := range c.TextProviders {
		cfg.Text[name] = providers.ProviderConfig{
			Type:      pc.Type,
			Model:     pc.Model,
			APIKey:    ResolveEnvVars(pc.APIKey),
			BaseURL:   pc.BaseURL,
			RateLimit: pc.RateLimit,
			Enabled:   pc.Enabled,
		}
	}

	for name, pc := range c.ImageProviders {
		cfg.Image[name] = providers.ProviderConfig{
			Type:      pc.Type,
			Model:     pc.Model,
			APIKey:    ResolveEnvVars(pc.APIKey),
			BaseURL:   pc.BaseURL,
			RateLimit: pc.RateLimit,
			Enabled:   pc.Enabled,
		}
	}

	return cfg
}

func (rc RoutingCfg) toRoutingTable() providers.RoutingTable {
	table := providers.RoutingTable{
		Primary:      rc.Primary,
		Fallback:     rc.Fallback,
		DefaultModel: rc.DefaultModel,
	}
	if len(rc.Models) > 0 {
		table.Models = make(map[providers.Stage]string, len(rc.Models))
		for stage, model := range rc.Models {
			table.Models[providers.Stage(stage)] = model
		}
	}
	if len(rc.Overrides) > 0 {
		table.Overrides = make(map[providers.Stage]providers.StageRoute, len(rc.Overrides))
		for stage, ov := range rc.Overrides {
			table.Overrides[providers.Stage(stage)] = providers.StageRoute{
				Primary:  ov.Primary,
				Fallback: ov.Fallback,
				Model:    ov.Model,
			}
		}
	}
	return table
}

// TrackPollDuration parses the tracking poll interval, falling back to
// 30 seconds on malformed input.
func (pc PipelineCfg) TrackPollDuration() time.Duration {
	d, err := time.ParseDuration(pc.TrackPollInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Storypress configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx GEMINI_API_KEY=xxx PRINT_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
