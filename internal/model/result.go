package model

import (
	"sort"
	"time"
)

// AnalysisResult is the complete output of analyzing one document
type AnalysisResult struct {
	Source          string         `json:"source,omitempty" yaml:"source,omitempty"`                   // File path or URL the text came from
	AnalyzedAt      time.Time      `json:"analyzed_at,omitzero" yaml:"analyzed_at,omitempty"`          // When the analysis ran
	CatalogVersion  string         `json:"catalog_version,omitempty" yaml:"catalog_version,omitempty"` // Version of the rule catalog used
	MaxClauseChars  int            `json:"max_clause_chars,omitempty" yaml:"max_clause_chars,omitempty"`
	Text            string         `json:"text" yaml:"text"`
	Clauses         []Clause       `json:"clauses" yaml:"clauses"`
	Matches         []RuleMatch    `json:"matches" yaml:"matches"`
	CategorySummary map[string]int `json:"category_summary" yaml:"category_summary"`
}

// Filter selects which matches survive into a filtered result
type Filter struct {
	MinConfidence float64  // Drop matches with confidence below this value
	Categories    []string // Keep only these categories (empty keeps all)
}

// IsZero reports whether the filter keeps every match
func (f Filter) IsZero() bool {
	return f.MinConfidence <= 0 && len(f.Categories) == 0
}

// Keep reports whether a match passes the filter
func (f Filter) Keep(m RuleMatch) bool {
	if m.Confidence < f.MinConfidence {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == m.Category {
			return true
		}
	}
	return false
}

// Summarize counts matches per category
func Summarize(matches []RuleMatch) map[string]int {
	summary := make(map[string]int)
	for _, m := range matches {
		summary[m.Category]++
	}
	return summary
}

// WithMatches returns a copy of the result carrying the given matches and a
// summary recomputed from them.
func (r *AnalysisResult) WithMatches(matches []RuleMatch) *AnalysisResult {
	out := *r
	out.Matches = matches
	out.CategorySummary = Summarize(matches)
	return &out
}

// Filter returns a new result holding only the matches accepted by f.
// The receiver is left untouched.
func (r *AnalysisResult) Filter(f Filter) *AnalysisResult {
	kept := make([]RuleMatch, 0, len(r.Matches))
	for _, m := range r.Matches {
		if f.Keep(m) {
			kept = append(kept, m)
		}
	}
	return r.WithMatches(kept)
}

// ByCategory groups matches by category, preserving match order inside each group
func (r *AnalysisResult) ByCategory() map[string][]RuleMatch {
	grouped := make(map[string][]RuleMatch)
	for _, m := range r.Matches {
		grouped[m.Category] = append(grouped[m.Category], m)
	}
	return grouped
}

// Categories returns the categories present in the summary, sorted
func (r *AnalysisResult) Categories() []string {
	cats := make([]string, 0, len(r.CategorySummary))
	for c := range r.CategorySummary {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}
