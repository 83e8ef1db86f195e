package adaptor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/request-hub/app/feed"
	"github.com/lysyi3m/request-hub/app/request"
)

type ConfigCache struct {
	adaptorsDir string
	cache       map[string]*Config
	mu          sync.RWMutex
}

func NewConfigCache(adaptorsDir string) *ConfigCache {
	return &ConfigCache{
		adaptorsDir: adaptorsDir,
		cache:       make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.adaptorsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.adaptorsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "adaptor", name, "harvestable", config.Harvestable(), "refresh_interval", config.Settings.RefreshInterval)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(name string) (*Config, error) {
	configFile := cc.getConfigFilePath(name)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = name

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[name]
	if !ok {
		return nil, fmt.Errorf("adaptor config with name '%s' not found", name)
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetHarvestableConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	harvestable := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Harvestable() {
			harvestable[k] = v
		}
	}
	return harvestable
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Settings.RefreshInterval == 0 {
		config.Settings.RefreshInterval = 3600
	}
	if config.Settings.MaxItems == 0 {
		config.Settings.MaxItems = 100
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 30
	}
	if config.Defaults.ContentType == "" {
		config.Defaults.ContentType = request.ContentTypeTranscribed
	}
	if config.Defaults.ContentFormat == "" {
		config.Defaults.ContentFormat = request.ContentFormatText
	}
	if config.Defaults.World == "" {
		config.Defaults.World = request.WorldOffline
	}

	return &config, nil
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.Name == "" {
		return fmt.Errorf("adaptor name is required")
	}
	if config.Source == "" {
		return fmt.Errorf("adaptor source is required")
	}

	nonNegativeFields := map[string]int{
		"refresh interval": config.Settings.RefreshInterval,
		"max items":        config.Settings.MaxItems,
		"timeout":          config.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if !request.IsValidContentType(config.Defaults.ContentType) {
		return fmt.Errorf("invalid content type: %s", config.Defaults.ContentType)
	}
	if !request.IsValidContentFormat(config.Defaults.ContentFormat) {
		return fmt.Errorf("invalid content format: %s", config.Defaults.ContentFormat)
	}
	if !request.IsValidWorld(config.Defaults.World) {
		return fmt.Errorf("invalid world: %s", config.Defaults.World)
	}
	if config.Defaults.Topic != "" && !request.IsValidTopic(config.Defaults.Topic) {
		return fmt.Errorf("invalid topic: %s", config.Defaults.Topic)
	}

	for i, filter := range config.Filters {
		if !feed.IsValidFilterField(filter.Field) {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(name string) string {
	return filepath.Join(cc.adaptorsDir, name+".yml")
}
