package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Provider Configuration
	Provider    string  `yaml:"provider"`
	OpenAIKey   string  `yaml:"openai_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Rate limiting for provider calls (requests per second; 0 disables)
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// HTTP Configuration
	HTTPPort int `yaml:"http_port"`

	// Redis Configuration (optional shared-context persistence)
	Redis RedisConfig `yaml:"redis"`

	// Agents Configuration
	Agents AgentsConfig `yaml:"agents"`

	// Knowledge Base
	MaxDocuments int `yaml:"max_documents"`
}

// RedisConfig holds the shared-context persistence settings.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AgentsConfig toggles the autonomous agents individually.
type AgentsConfig struct {
	ProgressAnalyzer bool `yaml:"progress_analyzer"`
	TaskScheduler    bool `yaml:"task_scheduler"`
	BehaviorCoach    bool `yaml:"behavior_coach"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1500
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.MaxDocuments == 0 {
		c.MaxDocuments = 10000
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 1
	}

	// All agents run unless a config file turns them off. Zero-value bools
	// cannot distinguish "absent" from "false", so defaults apply only when
	// no agent is enabled at all.
	if !c.Agents.ProgressAnalyzer && !c.Agents.TaskScheduler && !c.Agents.BehaviorCoach {
		c.Agents = AgentsConfig{ProgressAnalyzer: true, TaskScheduler: true, BehaviorCoach: true}
	}

	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Provider == "openai" && c.OpenAIKey == "" {
		return fmt.Errorf("openai provider requires an API key (openai_key or OPENAI_API_KEY)")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	return nil
}
