// Package source turns documents of various formats into the plain text the
// analyzer works on. Offsets reported by the analyzer refer to this text.
package source

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ppiankov/clausewatch/internal/segment"
)

// Format identifies a document format
type Format string

const (
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// Extractor converts raw document bytes into plain text
type Extractor interface {
	Extract(data []byte) (string, error)
}

// SupportedExtensions lists the file extensions with a dedicated extractor.
// Anything else is read as plain text.
var SupportedExtensions = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".xhtml":    FormatHTML,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
}

// FormatForFile picks a format from a file name or URL path
func FormatForFile(name string) Format {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := SupportedExtensions[ext]; ok {
		return f
	}
	return FormatText
}

// FormatForContentType picks a format from an HTTP Content-Type header,
// falling back to the extension of name when the type is missing or generic.
func FormatForContentType(contentType, name string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return FormatHTML
	case "text/markdown", "text/x-markdown":
		return FormatMarkdown
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX
	case "text/plain":
		// Servers often label markdown as text/plain
		if f := FormatForFile(urlPath(name)); f == FormatMarkdown {
			return f
		}
		return FormatText
	}
	return FormatForFile(urlPath(name))
}

// For returns the extractor for a format
func For(f Format) Extractor {
	switch f {
	case FormatHTML:
		return &HTMLExtractor{}
	case FormatMarkdown:
		return &MarkdownExtractor{}
	case FormatPDF:
		return &PDFExtractor{}
	case FormatDOCX:
		return &DOCXExtractor{}
	default:
		return &TextExtractor{}
	}
}

// ForFile returns the extractor for a file name
func ForFile(name string) Extractor {
	return For(FormatForFile(name))
}

// Extract converts data in the given format to text
func Extract(f Format, data []byte) (string, error) {
	text, err := For(f).Extract(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", f, err)
	}
	return text, nil
}

// ReadFile reads a local file, refusing files larger than maxBytes (0 means no limit)
func ReadFile(filePath string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s exceeds size limit of %d bytes", filePath, maxBytes)
	}
	return data, nil
}

// ExtractFile reads a local file and extracts its text based on its extension
func ExtractFile(filePath string, maxBytes int64) (string, error) {
	data, err := ReadFile(filePath, maxBytes)
	if err != nil {
		return "", err
	}
	return Extract(FormatForFile(filePath), data)
}

func urlPath(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return path.Base(name)
}

var headingJunk = regexp.MustCompile(`[^A-Z0-9 \-]+`)

// headingLine renders a structural heading so the segmenter recognizes it as
// a cut point: numbered headings are kept, others are upper-cased with
// punctuation removed.
func headingLine(title string) string {
	title = collapseSpace(title)
	if title == "" || segment.IsNumberedSection(title) {
		return title
	}

	upper := strings.ToUpper(title)
	cleaned := collapseSpace(headingJunk.ReplaceAllString(upper, " "))
	if segment.IsHeading(cleaned) {
		return cleaned
	}
	return upper
}

// collapseSpace joins the fields of s with single spaces
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// blockWriter joins text blocks with blank lines, which the segmenter treats
// as hard clause separators.
type blockWriter struct {
	b strings.Builder
}

func (w *blockWriter) block(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if w.b.Len() > 0 {
		w.b.WriteString("\n\n")
	}
	w.b.WriteString(text)
}

func (w *blockWriter) String() string {
	return w.b.String()
}
