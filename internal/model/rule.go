package model

import "regexp"

// Rule is a compiled pattern rule. Rules are built once from a catalog and never mutated.
type Rule struct {
	ID          string
	Category    string
	Description string
	Confidence  float64
	Pattern     *regexp.Regexp
	Rationale   string
}

// RuleMatch is one located occurrence of a rule pattern.
// Evidence offsets are document offsets, never clause-local.
type RuleMatch struct {
	RuleID        string  `json:"rule_id" yaml:"rule_id"`
	Category      string  `json:"category" yaml:"category"`
	Description   string  `json:"description" yaml:"description"`
	EvidenceStart int     `json:"evidence_start" yaml:"evidence_start"`
	EvidenceEnd   int     `json:"evidence_end" yaml:"evidence_end"`
	EvidenceText  string  `json:"evidence_text" yaml:"evidence_text"`
	Rationale     string  `json:"rationale" yaml:"rationale"`
	Confidence    float64 `json:"confidence" yaml:"confidence"`
}

// Span returns the evidence range as a Span
func (m RuleMatch) Span() Span {
	return Span{Start: m.EvidenceStart, End: m.EvidenceEnd}
}
