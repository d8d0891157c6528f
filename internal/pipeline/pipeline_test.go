package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/clausewatch/internal/model"
)

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.HTTP.RespectRobots = false
	cfg.HTTP.RequestsPerSecond = 0
	cfg.HTTP.UserAgent = "test-agent"
	return cfg
}

func newTestPipeline(t *testing.T, cfg *model.Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

const policyText = "SECTION ONE\nWe may sell personal information to partners.\n\nSECTION TWO\nWe retain data for 10 years. Our analytics partners use tracking."

func TestNewPipeline_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filter.MinConfidence = 2

	if _, err := NewPipeline(cfg); !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	cfg = testConfig(t)
	cfg.Rules.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewPipeline(cfg); err == nil {
		t.Error("Expected error for missing rule catalog")
	}
}

func TestAnalyzeSource_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	if err := os.WriteFile(path, []byte(policyText), 0644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t, testConfig(t))
	result, err := p.AnalyzeSource(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}

	if result.Source != path {
		t.Errorf("Expected source %s, got %s", path, result.Source)
	}
	if !result.AnalyzedAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected AnalyzedAt %v", result.AnalyzedAt)
	}
	if result.Text != policyText {
		t.Error("Expected plain text files to be analysed verbatim")
	}
	if len(result.Clauses) != 2 {
		t.Errorf("Expected 2 clauses, got %d", len(result.Clauses))
	}
	for _, cat := range []string{"data_sharing", "data_retention", "tracking_telemetry"} {
		if result.CategorySummary[cat] == 0 {
			t.Errorf("Expected %s finding, summary %v", cat, result.CategorySummary)
		}
	}
}

func TestAnalyzeSource_AppliesFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	if err := os.WriteFile(path, []byte(policyText), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.Filter.MinConfidence = 0.85
	p := newTestPipeline(t, cfg)

	result, err := p.AnalyzeSource(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}
	for _, m := range result.Matches {
		if m.Confidence < 0.85 {
			t.Errorf("Expected match %s below threshold to be filtered", m.RuleID)
		}
	}
	if _, ok := result.CategorySummary["tracking_telemetry"]; ok {
		t.Error("Expected filtered category to be absent from the summary")
	}
	if result.CategorySummary["data_sharing"] == 0 {
		t.Error("Expected data_sharing to survive the filter")
	}
}

func TestAnalyzeSource_CategoryFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filter.Categories = []string{"data_retention"}
	p := newTestPipeline(t, cfg)

	result, err := p.AnalyzeText(context.Background(), "inline", policyText)
	if err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}
	if len(result.CategorySummary) != 1 || result.CategorySummary["data_retention"] == 0 {
		t.Errorf("Expected only data_retention, got %v", result.CategorySummary)
	}
}

func TestAnalyzeSource_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><body><h1>Dispute Resolution</h1><p>All disputes go to binding arbitration.</p></body></html>`)
	}))
	defer server.Close()

	p := newTestPipeline(t, testConfig(t))
	result, err := p.AnalyzeSource(context.Background(), server.URL+"/terms")
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}

	if !strings.HasPrefix(result.Text, "DISPUTE RESOLUTION\n\n") {
		t.Errorf("Expected extracted HTML text, got %q", result.Text)
	}
	if result.CategorySummary["legal_terms"] != 1 {
		t.Errorf("Expected one legal_terms finding, got %v", result.CategorySummary)
	}
	for _, m := range result.Matches {
		if result.Text[m.EvidenceStart:m.EvidenceEnd] != m.EvidenceText {
			t.Errorf("Evidence offsets do not point into the extracted text: %+v", m)
		}
	}
}

func TestAnalyzeSource_Stdin(t *testing.T) {
	p := newTestPipeline(t, testConfig(t))
	p.SetStdin(strings.NewReader(policyText))

	result, err := p.AnalyzeSource(context.Background(), StdinSource)
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}
	if result.Source != "stdin" || result.Text != policyText {
		t.Errorf("Unexpected stdin result: source %q", result.Source)
	}
}

func TestAnalyzeSource_MissingFile(t *testing.T) {
	p := newTestPipeline(t, testConfig(t))
	if _, err := p.AnalyzeSource(context.Background(), filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/privacy": true,
		"http://example.com":          true,
		"ftp://example.com/file":      false,
		"policy.txt":                  false,
		"/abs/policy.txt":             false,
		"https://":                    false,
		"-":                           false,
	}
	for in, want := range tests {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestReportName(t *testing.T) {
	tests := map[string]string{
		"https://example.com/legal/privacy.html": "example_com_legal_privacy",
		"https://example.com/":                   "example_com",
		"/tmp/docs/policy.txt":                   "policy",
		"terms of service.md":                    "terms_of_service",
		"-":                                      "report",
	}
	for in, want := range tests {
		if got := ReportName(in); got != want {
			t.Errorf("ReportName(%q) = %q, want %q", in, got, want)
		}
	}
}
