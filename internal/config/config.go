package config

import (
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/helpmate-ai/cobalt/internal/core/model"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type DatabaseConfig struct {
	DSN string `toml:"dsn"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type SecurityConfig struct {
	// Extra patterns appended to the built-in sets. The built-ins are
	// English-only; deployments serving other languages should extend
	// these rather than rely on the defaults.
	ExtraInjectionPatterns  []string `toml:"extra_injection_patterns"`
	ExtraSuspiciousPatterns []string `toml:"extra_suspicious_patterns"`
	ExtraVocabulary         []string `toml:"extra_vocabulary"`
}

type ConfidenceConfig struct {
	Weights   model.ConfidenceWeights `toml:"weights"`
	Threshold float64                 `toml:"threshold"`
}

type RetrievalConfig struct {
	DefaultThreshold float64 `toml:"default_threshold"`
	DefaultLimit     int     `toml:"default_limit"`
	DiversityPenalty float64 `toml:"diversity_penalty"`
	CacheTTLSeconds  int     `toml:"cache_ttl_seconds"`
}

type ServerConfig struct {
	Port     string `toml:"port"`
	LogMode  string `toml:"log_mode"`
	LogLevel string `toml:"log_level"`
}

type Config struct {
	LLM        LLMConfig        `toml:"llm"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	Security   SecurityConfig   `toml:"security"`
	Confidence ConfidenceConfig `toml:"confidence"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Server     ServerConfig     `toml:"server"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 30,
		},
		Confidence: ConfidenceConfig{
			Weights:   model.DefaultConfidenceWeights(),
			Threshold: 0.7,
		},
		Retrieval: RetrievalConfig{
			DefaultThreshold: 0.1,
			DefaultLimit:     5,
			DiversityPenalty: 0.05,
			CacheTTLSeconds:  300,
		},
		Server: ServerConfig{
			Port:     "8080",
			LogMode:  "development",
			LogLevel: "info",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects weight tables that do not sum to 1 and out-of-range
// thresholds, so the invariant stays out of the scoring hot path.
func (c *Config) Validate() error {
	if sum := c.Confidence.Weights.Sum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("confidence weights must sum to 1, got %.4f", sum)
	}
	if c.Confidence.Threshold < 0 || c.Confidence.Threshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1], got %.4f", c.Confidence.Threshold)
	}
	if c.Retrieval.DefaultLimit <= 0 {
		return fmt.Errorf("retrieval default_limit must be positive, got %d", c.Retrieval.DefaultLimit)
	}
	return nil
}
