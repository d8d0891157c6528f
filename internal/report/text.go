package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ppiankov/clausewatch/internal/model"
)

const ruleWidth = 60

type palette struct {
	title    *color.Color
	header   *color.Color
	category *color.Color
	evidence *color.Color
	high     *color.Color
	medium   *color.Color
	low      *color.Color
	dim      *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title:    color.New(color.FgWhite, color.Bold),
		header:   color.New(color.FgCyan, color.Bold),
		category: color.New(color.FgMagenta, color.Bold),
		evidence: color.New(color.FgYellow),
		high:     color.New(color.FgRed),
		medium:   color.New(color.FgYellow),
		low:      color.New(color.FgGreen),
		dim:      color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.title, p.header, p.category, p.evidence, p.high, p.medium, p.low, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) confidence(c float64) *color.Color {
	switch {
	case c >= 0.85:
		return p.high
	case c >= 0.75:
		return p.medium
	default:
		return p.low
	}
}

// RenderText writes the human-readable summary report: totals, a per-category
// histogram, then every finding grouped by category.
func (r *Renderer) RenderText(w io.Writer, result *model.AnalysisResult) error {
	p := newPalette(r.color)
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	var b strings.Builder
	b.WriteString(heavy + "\n")
	b.WriteString(p.title.Sprint("CLAUSE ANALYSIS REPORT") + "\n")
	b.WriteString(heavy + "\n\n")

	if result.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", result.Source)
	}
	fmt.Fprintf(&b, "Total clauses analyzed: %d\n", len(result.Clauses))
	fmt.Fprintf(&b, "Total issues found: %d\n\n", len(result.Matches))

	b.WriteString(p.header.Sprint("ISSUES BY CATEGORY:") + "\n")
	b.WriteString(light + "\n")
	for _, cat := range result.Categories() {
		fmt.Fprintf(&b, "  %s: %d issue(s)\n", cat, result.CategorySummary[cat])
	}

	b.WriteString("\n" + p.header.Sprint("DETAILED FINDINGS:") + "\n")
	b.WriteString(light + "\n")

	if len(result.Matches) == 0 {
		b.WriteString("\nNo concerning clauses found.\n\n")
	}

	grouped := result.ByCategory()
	for _, cat := range result.Categories() {
		b.WriteString("\n" + p.category.Sprintf("[%s]", strings.ToUpper(cat)) + "\n")
		for i, m := range grouped[cat] {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, m.Rationale)
			fmt.Fprintf(&b, "     Evidence: %s\n", p.evidence.Sprintf("%q", m.EvidenceText))
			fmt.Fprintf(&b, "     Confidence: %s\n", p.confidence(m.Confidence).Sprint(percent(m.Confidence)))
			fmt.Fprintf(&b, "     Location: %s\n\n", p.dim.Sprintf("characters %s", m.Span()))
		}
	}

	b.WriteString(heavy + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func percent(c float64) string {
	return fmt.Sprintf("%.0f%%", c*100)
}
