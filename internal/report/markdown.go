package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/model"
)

// RenderMarkdown writes a Markdown report with a summary table and one
// findings table per category.
func (r *Renderer) RenderMarkdown(w io.Writer, result *model.AnalysisResult) error {
	var b strings.Builder

	title := result.Source
	if title == "" {
		title = "document"
	}
	fmt.Fprintf(&b, "# Clause analysis: %s\n\n", mdEscape(title))

	if !result.AnalyzedAt.IsZero() {
		fmt.Fprintf(&b, "- **Analyzed:** %s\n", result.AnalyzedAt.UTC().Format(time.RFC3339))
	}
	if result.CatalogVersion != "" {
		fmt.Fprintf(&b, "- **Rule catalog:** %s\n", result.CatalogVersion)
	}
	fmt.Fprintf(&b, "- **Clauses:** %d\n", len(result.Clauses))
	fmt.Fprintf(&b, "- **Findings:** %d\n\n", len(result.Matches))

	b.WriteString("## Summary\n\n")
	if len(result.Matches) == 0 {
		b.WriteString("No concerning clauses found.\n\n")
	} else {
		b.WriteString("| Category | Findings |\n|---|---:|\n")
		for _, cat := range result.Categories() {
			fmt.Fprintf(&b, "| %s | %d |\n", cat, result.CategorySummary[cat])
		}
		b.WriteString("\n## Findings\n")

		grouped := result.ByCategory()
		for _, cat := range result.Categories() {
			fmt.Fprintf(&b, "\n### %s\n\n", cat)
			b.WriteString("| # | Rule | Evidence | Confidence | Location | Rationale |\n")
			b.WriteString("|---:|---|---|---:|---|---|\n")
			for i, m := range grouped[cat] {
				fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %s | %s |\n",
					i+1, m.RuleID, mdEscape(m.EvidenceText), percent(m.Confidence),
					m.Span(), mdEscape(m.Rationale))
			}
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by clausewatch. Findings are pattern matches that flag language for human review; they are not legal advice._\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

var mdReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// mdEscape makes s safe inside a table cell
func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}
