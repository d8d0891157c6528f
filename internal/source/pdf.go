package source

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts page text with ledongthuc/pdf. Rows are rebuilt from
// glyph positions; pages are separated by blank lines.
type PDFExtractor struct {
	MaxPages int // 0 means every page
}

func (e *PDFExtractor) Extract(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := r.NumPage()
	if e.MaxPages > 0 && pages > e.MaxPages {
		pages = e.MaxPages
	}

	var out blockWriter
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			continue
		}
		out.block(text)
	}
	return out.String(), nil
}

// pageText reads a page row by row, falling back to the plain text stream
func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return p.GetPlainText(nil)
	}

	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	// PDF y grows upwards: top of the page first
	sort.SliceStable(sorted, func(i, j int) bool {
		return averageY(sorted[i].Content) > averageY(sorted[j].Content)
	})

	var buf strings.Builder
	for _, row := range sorted {
		line := strings.TrimSpace(rowText(row.Content))
		if line == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

func averageY(texts []pdf.Text) float64 {
	if len(texts) == 0 {
		return 0
	}
	var total float64
	for _, t := range texts {
		total += t.Y
	}
	return total / float64(len(texts))
}

// rowText joins glyph runs left to right, inserting a space wherever the gap
// exceeds a fifth of the font size.
func rowText(texts []pdf.Text) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	var buf strings.Builder
	for i, t := range sorted {
		buf.WriteString(t.S)
		if i == len(sorted)-1 {
			break
		}
		fontSize := t.FontSize
		if fontSize <= 0 {
			fontSize = 12
		}
		if gap := sorted[i+1].X - (t.X + t.W); gap > fontSize*0.2 {
			buf.WriteByte(' ')
		}
	}
	return buf.String()
}
