package rules

import (
	"context"
	"fmt"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/worker"
)

// ToDocumentOffset translates an offset inside a clause's text into an offset
// into the original document.
func ToDocumentOffset(clauseSpan model.Span, localOffset int) int {
	return clauseSpan.Start + localOffset
}

// MatchRule finds every non-overlapping occurrence of one rule in one clause,
// left to right. Empty occurrences are skipped.
func MatchRule(clause model.Clause, rule model.Rule) []model.RuleMatch {
	var matches []model.RuleMatch
	for _, loc := range rule.Pattern.FindAllStringIndex(clause.Text, -1) {
		if loc[0] == loc[1] {
			continue
		}
		matches = append(matches, model.RuleMatch{
			RuleID:        rule.ID,
			Category:      rule.Category,
			Description:   rule.Description,
			EvidenceStart: ToDocumentOffset(clause.Span, loc[0]),
			EvidenceEnd:   ToDocumentOffset(clause.Span, loc[1]),
			EvidenceText:  clause.Text[loc[0]:loc[1]],
			Rationale:     rule.Rationale,
			Confidence:    rule.Confidence,
		})
	}
	return matches
}

// MatchClause applies every rule, in order, to one clause
func MatchClause(clause model.Clause, rules []model.Rule) []model.RuleMatch {
	var matches []model.RuleMatch
	for _, rule := range rules {
		matches = append(matches, MatchRule(clause, rule)...)
	}
	return matches
}

// Apply matches rules against clauses. Output is ordered by clause, then rule,
// then occurrence.
func Apply(clauses []model.Clause, rules []model.Rule) []model.RuleMatch {
	matches := []model.RuleMatch{}
	for _, clause := range clauses {
		matches = append(matches, MatchClause(clause, rules)...)
	}
	return matches
}

// Engine applies a catalog to clauses, optionally fanning clauses out across workers
type Engine struct {
	catalog *Catalog
	workers int
}

// NewEngine creates an engine. workers <= 1 matches sequentially.
func NewEngine(catalog *Catalog, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		catalog: catalog,
		workers: workers,
	}
}

// Catalog returns the engine's rule catalog
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Apply matches the catalog against clauses. The result order is identical to
// the package-level Apply regardless of the worker count.
func (e *Engine) Apply(ctx context.Context, clauses []model.Clause) ([]model.RuleMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rules := e.catalog.rules
	if e.workers == 1 || len(clauses) < 2 {
		return Apply(clauses, rules), nil
	}

	perClause, err := worker.Map(ctx, e.workers, clauses, func(_ context.Context, clause model.Clause) []model.RuleMatch {
		return MatchClause(clause, rules)
	})
	if err != nil {
		return nil, fmt.Errorf("match clauses: %w", err)
	}

	matches := []model.RuleMatch{}
	for _, m := range perClause {
		matches = append(matches, m...)
	}
	return matches, nil
}
