package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BackendConfig holds the LLM completion service settings.
type BackendConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float32 `yaml:"temperature"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	RetryDelaySeconds float64 `yaml:"retry_delay_seconds"`
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
}

// PipelineConfig bounds chunking and concurrency.
type PipelineConfig struct {
	Concurrency      int  `yaml:"concurrency"`
	MaxPromptTokens  int  `yaml:"max_prompt_tokens"`
	MaxChunkSegments int  `yaml:"max_chunk_segments"`
	MaxChunkChars    int  `yaml:"max_chunk_chars"`
	Dedup            bool `yaml:"dedup"`
	// KeepTypes restricts the final output to the listed question types;
	// empty keeps everything.
	KeepTypes []string `yaml:"keep_types"`
}

// DefaultsConfig supplies field values for questions the model leaves blank.
type DefaultsConfig struct {
	Title     string   `yaml:"title"`
	Subject   string   `yaml:"subject"`
	Module    string   `yaml:"module"`
	SubModule string   `yaml:"sub_module"`
	Tags      []string `yaml:"tags"`
}

// DatabaseConfig holds the optional bulk-import target.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
	Debug    bool   `yaml:"debug"`
}

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Database DatabaseConfig `yaml:"database"`
}

const apiKeyEnv = "SILICONFLOW_API_KEY"

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config usable without a file, for tests and dry runs.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Backend.APIKey == "" {
		c.Backend.APIKey = os.Getenv(apiKeyEnv)
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "https://api.qnaigc.com/v1"
	}
	if c.Backend.Model == "" {
		c.Backend.Model = "deepseek-v3-0324"
	}
	if c.Backend.MaxTokens == 0 {
		c.Backend.MaxTokens = 8192
	}
	if c.Backend.Temperature == 0 {
		c.Backend.Temperature = 0.1
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 180
	}
	if c.Backend.MaxRetries == 0 {
		c.Backend.MaxRetries = 3
	}
	if c.Backend.RetryDelaySeconds == 0 {
		c.Backend.RetryDelaySeconds = 5
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = 4
	}
	if c.Pipeline.MaxPromptTokens == 0 {
		c.Pipeline.MaxPromptTokens = 6000
	}
	if c.Pipeline.MaxChunkSegments == 0 {
		c.Pipeline.MaxChunkSegments = 50
	}
	if c.Pipeline.MaxChunkChars == 0 {
		c.Pipeline.MaxChunkChars = 15000
	}
	if c.Defaults.Subject == "" {
		c.Defaults.Subject = "common_knowledge"
	}
	if c.Database.Table == "" {
		c.Database.Table = "questions"
	}
}

// ValidateAPIKey reports whether a usable backend key is configured.
func (c *Config) ValidateAPIKey() error {
	if c.Backend.APIKey == "" {
		return fmt.Errorf("backend API key not set; configure backend.api_key or %s", apiKeyEnv)
	}
	return nil
}
