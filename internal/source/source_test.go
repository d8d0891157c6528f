package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/clausewatch/internal/segment"
)

func TestFormatForFile(t *testing.T) {
	tests := map[string]Format{
		"policy.txt":          FormatText,
		"policy.HTML":         FormatHTML,
		"terms.htm":           FormatHTML,
		"README.md":           FormatMarkdown,
		"terms.markdown":      FormatMarkdown,
		"eula.pdf":            FormatPDF,
		"contract.docx":       FormatDOCX,
		"notes":               FormatText,
		"archive.tar.gz":      FormatText,
		"/abs/path/terms.PDF": FormatPDF,
	}

	for name, want := range tests {
		if got := FormatForFile(name); got != want {
			t.Errorf("FormatForFile(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestFormatForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		name        string
		want        Format
	}{
		{"text/html; charset=utf-8", "https://example.com/privacy", FormatHTML},
		{"application/xhtml+xml", "https://example.com/", FormatHTML},
		{"application/pdf", "https://example.com/download?id=3", FormatPDF},
		{"text/plain", "https://example.com/TERMS.md?raw=1", FormatMarkdown},
		{"text/plain", "https://example.com/terms.txt", FormatText},
		{"", "https://example.com/eula.docx", FormatDOCX},
		{"application/octet-stream", "https://example.com/eula.pdf#page=2", FormatPDF},
		{"garbage;;", "https://example.com/x", FormatText},
	}

	for _, tt := range tests {
		if got := FormatForContentType(tt.contentType, tt.name); got != tt.want {
			t.Errorf("FormatForContentType(%q, %q) = %s, want %s", tt.contentType, tt.name, got, tt.want)
		}
	}
}

func TestHeadingLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Privacy Policy", "PRIVACY POLICY"},
		{"Cookies & Tracking", "COOKIES TRACKING"},
		{"  Data   Retention ", "DATA RETENTION"},
		{"3. Sharing Your Data", "3. Sharing Your Data"},
		{"Terms", "TERMS"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := headingLine(tt.in); got != tt.want {
			t.Errorf("headingLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if !segment.IsHeading(headingLine("Your Choices?")) {
		t.Error("Expected cleaned heading to be recognized by the segmenter")
	}
}

func TestTextExtractor_Unchanged(t *testing.T) {
	raw := "SECTION ONE\r\nWe may sell data.\r\n\r\n  indented  "
	got, err := Extract(FormatText, []byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != raw {
		t.Errorf("Expected text to be returned verbatim, got %q", got)
	}
}

func TestHTMLExtractor(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Privacy</title><style>body { color: red }</style></head>
<body>
<nav><a href="/">Home</a></nav>
<h1>Privacy Policy</h1>
<p>We may <b>sell</b> personal
   information to partners.</p>
<script>var tracking = true;</script>
<h2>Data Retention</h2>
<ul><li>We retain data for 10 years.</li><li>Backups are kept.</li></ul>
<footer>Contact us</footer>
</body>
</html>`

	got, err := Extract(FormatHTML, []byte(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "PRIVACY POLICY\n\nWe may sell personal information to partners.\n\nDATA RETENTION\n\nWe retain data for 10 years.\n\nBackups are kept.\n\nContact us"
	if got != want {
		t.Errorf("Unexpected extraction:\n got: %q\nwant: %q", got, want)
	}

	for _, banned := range []string{"Home", "tracking", "color"} {
		if strings.Contains(got, banned) {
			t.Errorf("Expected %q to be dropped", banned)
		}
	}
}

func TestHTMLExtractor_MainContentOnly(t *testing.T) {
	page := `<html><body>
<header><p>Sign in to sell your car</p></header>
<main role="main"><h1>Terms</h1><p>Disputes go to arbitration.</p></main>
<aside><p>Related links</p></aside>
</body></html>`

	got, err := Extract(FormatHTML, []byte(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "TERMS\n\nDisputes go to arbitration."
	if got != want {
		t.Errorf("Unexpected extraction:\n got: %q\nwant: %q", got, want)
	}
}

func TestHTMLExtractor_SegmentsOnHeadings(t *testing.T) {
	page := `<html><body><h2>First Section</h2><p>Alpha text.</p><h2>Second Section</h2><p>Beta text.</p></body></html>`

	text, err := Extract(FormatHTML, []byte(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clauses, err := segment.Segment(text, 1200)
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if len(clauses) < 2 {
		t.Errorf("Expected headings to separate clauses, got %d clause(s)", len(clauses))
	}
}

func TestMarkdownExtractor(t *testing.T) {
	src := "# Terms of Service\n\nYou agree to **binding arbitration**.\nSee [the rules](https://example.com).\n\n## Your Data\n\n- We share data with *affiliates*.\n- We retain logs.\n\n> Quoted text here.\n"

	got, err := Extract(FormatMarkdown, []byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "TERMS OF SERVICE\n\nYou agree to binding arbitration.\nSee the rules.\n\nYOUR DATA\n\n- We share data with affiliates.\n- We retain logs.\n\nQuoted text here."
	if got != want {
		t.Errorf("Unexpected extraction:\n got: %q\nwant: %q", got, want)
	}
}

func TestBinaryExtractors_RejectGarbage(t *testing.T) {
	for _, f := range []Format{FormatPDF, FormatDOCX} {
		if _, err := Extract(f, []byte("definitely not a binary document")); err == nil {
			t.Errorf("Expected %s extractor to reject garbage input", f)
		}
	}
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.md")
	if err := os.WriteFile(path, []byte("## Sharing\n\nWe share data.\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ExtractFile(path, 0)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if got != "SHARING\n\nWe share data." {
		t.Errorf("Unexpected text %q", got)
	}

	if _, err := ExtractFile(path, 5); err == nil {
		t.Error("Expected size limit error")
	}
	if _, err := ExtractFile(filepath.Join(dir, "missing.txt"), 0); err == nil {
		t.Error("Expected error for missing file")
	}
}
