// Package rules holds the rule catalog and the engine that applies it to clauses.
package rules

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"sync"

	"github.com/ppiankov/clausewatch/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is returned when a rule definition cannot be compiled
var ErrInvalidRule = fmt.Errorf("%w: invalid rule", model.ErrInvalidConfig)

//go:embed default_rules.yaml
var defaultCatalogYAML []byte

// RuleDef is the declarative form of a rule as it appears in a catalog file
type RuleDef struct {
	ID          string  `yaml:"id" json:"id"`
	Category    string  `yaml:"category" json:"category"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Confidence  float64 `yaml:"confidence" json:"confidence"`
	Pattern     string  `yaml:"pattern" json:"pattern"` // RE2 syntax, matched case-insensitively
	Rationale   string  `yaml:"rationale" json:"rationale"`
}

// CatalogFile is the on-disk layout of a rule catalog
type CatalogFile struct {
	Version string    `yaml:"version" json:"version"`
	Rules   []RuleDef `yaml:"rules" json:"rules"`
}

// Catalog is an immutable, ordered set of compiled rules.
// It is safe for concurrent use.
type Catalog struct {
	version string
	defs    []RuleDef
	rules   []model.Rule
}

// Compile validates and compiles rule definitions in order
func Compile(version string, defs []RuleDef) (*Catalog, error) {
	c := &Catalog{
		version: version,
		defs:    make([]RuleDef, 0, len(defs)),
		rules:   make([]model.Rule, 0, len(defs)),
	}

	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		rule, err := compileRule(def)
		if err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i+1, err)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("rule #%d: %w: duplicate id %q", i+1, ErrInvalidRule, def.ID)
		}
		seen[def.ID] = true

		c.defs = append(c.defs, def)
		c.rules = append(c.rules, rule)
	}

	return c, nil
}

func compileRule(def RuleDef) (model.Rule, error) {
	switch {
	case def.ID == "":
		return model.Rule{}, fmt.Errorf("%w: missing id", ErrInvalidRule)
	case def.Category == "":
		return model.Rule{}, fmt.Errorf("%w: %s: missing category", ErrInvalidRule, def.ID)
	case def.Confidence < 0 || def.Confidence > 1:
		return model.Rule{}, fmt.Errorf("%w: %s: confidence %g outside [0,1]", ErrInvalidRule, def.ID, def.Confidence)
	case def.Pattern == "":
		return model.Rule{}, fmt.Errorf("%w: %s: missing pattern", ErrInvalidRule, def.ID)
	}

	re, err := regexp.Compile("(?i)" + def.Pattern)
	if err != nil {
		return model.Rule{}, fmt.Errorf("%w: %s: compile pattern: %v", ErrInvalidRule, def.ID, err)
	}

	return model.Rule{
		ID:          def.ID,
		Category:    def.Category,
		Description: def.Description,
		Confidence:  def.Confidence,
		Pattern:     re,
		Rationale:   def.Rationale,
	}, nil
}

// ParseCatalog decodes and compiles a YAML catalog. Unknown fields are rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty catalog", model.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%w: decode catalog: %v", model.ErrInvalidConfig, err)
	}

	return Compile(file.Version, file.Rules)
}

// LoadCatalogFile reads and compiles a YAML catalog from disk
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
})

// Default returns the built-in catalog. It is compiled once and shared.
func Default() (*Catalog, error) {
	return defaultCatalog()
}

// Load returns the catalog at path, or the built-in catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadCatalogFile(path)
}

// DefaultCatalogYAML returns the raw built-in catalog
func DefaultCatalogYAML() []byte {
	return bytes.Clone(defaultCatalogYAML)
}

// Version returns the catalog version string
func (c *Catalog) Version() string {
	return c.version
}

// Len returns the number of rules
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Rules returns the compiled rules in catalog order.
// The returned slice is a copy; the compiled patterns are shared and read-only.
func (c *Catalog) Rules() []model.Rule {
	out := make([]model.Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Defs returns the source definitions in catalog order
func (c *Catalog) Defs() []RuleDef {
	out := make([]RuleDef, len(c.defs))
	copy(out, c.defs)
	return out
}

// Categories returns the distinct categories, sorted
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, r := range c.rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			cats = append(cats, r.Category)
		}
	}
	sort.Strings(cats)
	return cats
}
