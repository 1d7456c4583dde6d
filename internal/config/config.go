package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Business   BusinessConfig   `yaml:"business"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	AI         AIConfig         `yaml:"ai"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// ThresholdsConfig controls when a classification is flagged for review.
type ThresholdsConfig struct {
	ReviewFlag float64 `yaml:"review_flag"` // confidence below this => needs review
}

// AIConfig controls the batch classifier.
type AIConfig struct {
	Model        string `yaml:"model"`
	BatchSize    int    `yaml:"batch_size"`     // transactions per model call
	BatchDelayMS int    `yaml:"batch_delay_ms"` // pause between sequential batches
	MaxRetries   int    `yaml:"max_retries"`    // per-batch API retries before degrading
}

// Load reads a tally.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName, entityType string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:       businessName,
			EntityType: entityType,
		},
		Thresholds: ThresholdsConfig{
			ReviewFlag: 0.70,
		},
		AI: AIConfig{
			Model:        "gemini-2.5-flash",
			BatchSize:    25,
			BatchDelayMS: 4000,
			MaxRetries:   2,
		},
	}
}
