package model

import "fmt"

// Span is a half-open [Start, End) byte range into the original document text
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Valid reports whether the span is non-empty and lies inside a document of docLen bytes
func (s Span) Valid(docLen int) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= docLen
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Clause is a contiguous, offset-stable unit of document text.
// Text always equals document[Span.Start:Span.End].
type Clause struct {
	ID   string `json:"id" yaml:"id"`
	Span Span   `json:"span" yaml:"span"`
	Text string `json:"text" yaml:"text"`
}
