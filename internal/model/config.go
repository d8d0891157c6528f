package model

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds all tunables for an analysis run
type Config struct {
	Segmenter   SegmenterConfig   `yaml:"segmenter" mapstructure:"segmenter"`
	Rules       RulesConfig       `yaml:"rules" mapstructure:"rules"`
	Filter      FilterConfig      `yaml:"filter" mapstructure:"filter"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
}

// SegmenterConfig controls clause segmentation
type SegmenterConfig struct {
	MaxClauseChars int `yaml:"max_clause_chars" mapstructure:"max_clause_chars"` // Upper bound on clause length in bytes
}

// RulesConfig selects the rule catalog
type RulesConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"` // Empty uses the built-in catalog
}

// FilterConfig controls which matches are reported
type FilterConfig struct {
	MinConfidence float64  `yaml:"min_confidence" mapstructure:"min_confidence"`
	Categories    []string `yaml:"categories" mapstructure:"categories"`
}

// HTTPConfig controls fetching of remote documents
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS       bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Per host
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig controls the fetched-document cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // Documents analysed in parallel by batch
	MatchWorkers int `yaml:"match_workers" mapstructure:"match_workers"` // Clauses matched in parallel per document (1 = sequential)
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	NoColor       bool `yaml:"no_color" mapstructure:"no_color"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "clausewatch-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".clausewatch", "cache")
	}

	return &Config{
		Segmenter: SegmenterConfig{
			MaxClauseChars: 1200,
		},
		Filter: FilterConfig{
			MinConfidence: 0,
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "Clausewatch/0.1 (+https://github.com/ppiankov/clausewatch)",
			MaxBodyBytes:      5_000_000,
			RespectRobots:     true,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      runtime.NumCPU(),
			MatchWorkers: 1,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 5_000_000,
		},
	}
}

// Validate rejects settings the analyzer cannot run with. Values are never clamped.
func (c *Config) Validate() error {
	if c.Segmenter.MaxClauseChars <= 0 {
		return fmt.Errorf("%w: max_clause_chars must be positive, got %d", ErrInvalidConfig, c.Segmenter.MaxClauseChars)
	}
	if c.Filter.MinConfidence < 0 || c.Filter.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence must be between 0.0 and 1.0, got %g", ErrInvalidConfig, c.Filter.MinConfidence)
	}
	if c.Concurrency.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Concurrency.Workers)
	}
	if c.Concurrency.MatchWorkers <= 0 {
		return fmt.Errorf("%w: match_workers must be positive, got %d", ErrInvalidConfig, c.Concurrency.MatchWorkers)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive, got %d", ErrInvalidConfig, c.HTTP.MaxBodyBytes)
	}
	return nil
}

// FilterSpec converts the filter settings into a match Filter
func (c *Config) FilterSpec() Filter {
	return Filter{
		MinConfidence: c.Filter.MinConfidence,
		Categories:    c.Filter.Categories,
	}
}
