// Package analyzer runs the segment-then-match pipeline over a document.
package analyzer

import (
	"context"
	"fmt"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/rules"
	"github.com/ppiankov/clausewatch/internal/segment"
)

// Options tune an Analyzer
type Options struct {
	MaxClauseChars int // Clause budget in bytes; must be positive
	MatchWorkers   int // Clauses matched in parallel; <= 1 is sequential
}

// DefaultOptions mirrors the defaults of model.DefaultConfig
func DefaultOptions() Options {
	return Options{
		MaxClauseChars: 1200,
		MatchWorkers:   1,
	}
}

// Analyzer segments documents and applies a fixed rule catalog.
// An Analyzer holds no per-document state and is safe for concurrent use.
type Analyzer struct {
	segmenter *segment.Segmenter
	engine    *rules.Engine
}

// New creates an analyzer over catalog
func New(catalog *rules.Catalog, opts Options) (*Analyzer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: nil rule catalog", model.ErrInvalidConfig)
	}

	seg, err := segment.New(opts.MaxClauseChars)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		segmenter: seg,
		engine:    rules.NewEngine(catalog, opts.MatchWorkers),
	}, nil
}

// NewDefault creates an analyzer over the built-in catalog with default options
func NewDefault() (*Analyzer, error) {
	catalog, err := rules.Default()
	if err != nil {
		return nil, fmt.Errorf("load default catalog: %w", err)
	}
	return New(catalog, DefaultOptions())
}

// Catalog returns the analyzer's rule catalog
func (a *Analyzer) Catalog() *rules.Catalog {
	return a.engine.Catalog()
}

// MaxClauseChars returns the clause budget
func (a *Analyzer) MaxClauseChars() int {
	return a.segmenter.MaxClauseChars()
}

// Analyze segments text, applies the catalog and summarizes matches by category
func (a *Analyzer) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	clauses := a.segmenter.Segment(text)

	matches, err := a.Match(ctx, clauses)
	if err != nil {
		return nil, err
	}

	return &model.AnalysisResult{
		CatalogVersion:  a.Catalog().Version(),
		MaxClauseChars:  a.MaxClauseChars(),
		Text:            text,
		Clauses:         clauses,
		Matches:         matches,
		CategorySummary: model.Summarize(matches),
	}, nil
}

// Match applies the catalog to clauses produced earlier, without re-segmenting
func (a *Analyzer) Match(ctx context.Context, clauses []model.Clause) ([]model.RuleMatch, error) {
	matches, err := a.engine.Apply(ctx, clauses)
	if err != nil {
		return nil, fmt.Errorf("apply rules: %w", err)
	}
	return matches, nil
}
