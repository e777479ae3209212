package config

import (
	"time"
)

// Config represents the complete sitescout configuration.
type Config struct {
	Investigation InvestigationConfig `yaml:"investigation"`
	AI            AIConfig            `yaml:"ai"`
	Storage       StorageConfig       `yaml:"storage"`
	Browser       BrowserConfig       `yaml:"browser"`
	Meta          MetaConfig          `yaml:"meta"`
}

// InvestigationConfig controls the analysis pipeline.
type InvestigationConfig struct {
	MaxDepth       int  `yaml:"max_depth"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	EnableAI       bool `yaml:"enable_ai_analysis"`
	EnableDeepScan bool `yaml:"enable_deep_scan"`
}

// AIConfig holds AI provider configuration.
type AIConfig struct {
	Provider string `yaml:"provider"` // openai, anthropic, mock
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// StorageConfig holds knowledge base persistence paths.
type StorageConfig struct {
	DBPath    string `yaml:"db_path"`
	CachePath string `yaml:"cache_path"`
}

// BrowserConfig holds browser session configuration.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	ScreenshotDir  string `yaml:"screenshot_dir"`
	UserAgent      string `yaml:"user_agent,omitempty"`
}

// MetaConfig holds metadata about the configuration.
type MetaConfig struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	now := time.Now()
	return &Config{
		Investigation: InvestigationConfig{
			MaxDepth:       2,
			TimeoutSeconds: 60,
			EnableAI:       false,
			EnableDeepScan: true,
		},
		AI: AIConfig{
			Provider: "mock",
			Model:    "",
		},
		Storage: StorageConfig{
			DBPath:    ".sitescout/knowledge.db",
			CachePath: ".sitescout/knowledge_cache.json",
		},
		Browser: BrowserConfig{
			Headless:      true,
			ScreenshotDir: ".sitescout/screenshots",
		},
		Meta: MetaConfig{
			Version:   "1.0.0",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Investigation.TimeoutSeconds <= 0 {
		return NewValidationError("investigation.timeout_seconds must be positive")
	}

	if c.Investigation.MaxDepth < 1 {
		return NewValidationError("investigation.max_depth must be at least 1")
	}

	if c.Storage.DBPath == "" {
		return NewValidationError("storage.db_path is required")
	}

	if c.Investigation.EnableAI {
		switch c.AI.Provider {
		case "mock":
		case "openai", "anthropic":
			if c.AI.APIKey == "" {
				return NewValidationError("ai.api_key is required for provider: " + c.AI.Provider)
			}
		default:
			return NewValidationError("unknown ai.provider: " + c.AI.Provider)
		}
	}

	return nil
}

// Timeout returns the per-investigation time box.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Investigation.TimeoutSeconds) * time.Second
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Message
}

// NewValidationError creates a new validation error.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}
