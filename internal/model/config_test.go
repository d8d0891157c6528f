package model

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Segmenter.MaxClauseChars != 1200 {
		t.Errorf("Expected default max clause chars 1200, got %d", cfg.Segmenter.MaxClauseChars)
	}
	if cfg.Concurrency.Workers <= 0 {
		t.Errorf("Expected positive worker count, got %d", cfg.Concurrency.Workers)
	}
	if !cfg.HTTP.RespectRobots {
		t.Error("Expected robots.txt to be respected by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max clause chars", func(c *Config) { c.Segmenter.MaxClauseChars = 0 }},
		{"negative max clause chars", func(c *Config) { c.Segmenter.MaxClauseChars = -5 }},
		{"negative confidence", func(c *Config) { c.Filter.MinConfidence = -0.1 }},
		{"confidence above one", func(c *Config) { c.Filter.MinConfidence = 1.1 }},
		{"zero workers", func(c *Config) { c.Concurrency.Workers = 0 }},
		{"zero match workers", func(c *Config) { c.Concurrency.MatchWorkers = 0 }},
		{"zero body limit", func(c *Config) { c.HTTP.MaxBodyBytes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfigFilterSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filter.MinConfidence = 0.8
	cfg.Filter.Categories = []string{"legal_terms"}

	f := cfg.FilterSpec()
	if f.MinConfidence != 0.8 || len(f.Categories) != 1 || f.Categories[0] != "legal_terms" {
		t.Errorf("Unexpected filter %+v", f)
	}
}
