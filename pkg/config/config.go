// Package config loads the service configuration from an optional YAML
// file with environment variables taking precedence.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory when
// no explicit path is given.
const DefaultFile = "foodgate.yaml"

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	DeepSeekAPIKey  string

	DataDir    string
	Addr       string
	EmbedModel string
	PoolSize   int
	Debug      bool

	Tiers TiersConfig
}

// FileConfig is the YAML structure of foodgate.yaml.
type FileConfig struct {
	APIKeys    APIKeysConfig `yaml:"api_keys"`
	DataDir    string        `yaml:"data_dir"`
	Addr       string        `yaml:"addr"`
	EmbedModel string        `yaml:"embed_model"`
	PoolSize   int           `yaml:"pool_size"`
	Debug      bool          `yaml:"debug"`
	Tiers      TiersConfig   `yaml:"tiers"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Gemini    string `yaml:"gemini"`
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	DeepSeek  string `yaml:"deepseek"`
}

// Load reads configuration from the given file (DefaultFile when path is
// empty; a missing file is fine) and the environment. Environment
// variables take precedence over file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	fileConfig, err := loadFileConfig(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		GeminiAPIKey:    getEnvOrDefault("GEMINI_API_KEY", fileConfig.APIKeys.Gemini),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		DeepSeekAPIKey:  getEnvOrDefault("DEEPSEEK_API_KEY", fileConfig.APIKeys.DeepSeek),
		DataDir:         getEnvOrDefault("DATA_DIR", fileConfig.DataDir),
		Addr:            getEnvOrDefault("FOODGATE_ADDR", fileConfig.Addr),
		EmbedModel:      fileConfig.EmbedModel,
		PoolSize:        fileConfig.PoolSize,
		Debug:           fileConfig.Debug || os.Getenv("FOODGATE_DEBUG") != "",
		Tiers:           fileConfig.Tiers,
	}
	applyDefaults(cfg)

	if err := cfg.Tiers.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-004"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 32
	}
	cfg.Tiers.applyDefaults()
}

// APIKey returns the configured key for an adapter name.
func (c *Config) APIKey(adapter string) string {
	switch adapter {
	case "google":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "deepseek":
		return c.DeepSeekAPIKey
	default:
		return ""
	}
}

// HasAdapter reports whether the adapter's API key is configured. The mock
// adapter needs no key.
func (c *Config) HasAdapter(name string) bool {
	if name == "mock" {
		return true
	}
	return c.APIKey(name) != ""
}

// loadFileConfig reads the config file. A missing file yields an empty
// config; a malformed one is an error.
func loadFileConfig(path string) (*FileConfig, error) {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}
