package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/clausewatch/internal/analyzer"
	"github.com/ppiankov/clausewatch/internal/model"
)

func newTestServer(t *testing.T, mutate func(*model.Config)) (*httptest.Server, *bytes.Buffer) {
	t.Helper()

	cfg := model.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}

	a, err := analyzer.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}

	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))

	srv := httptest.NewServer(NewServer(a, log, cfg))
	t.Cleanup(srv.Close)
	return srv, &logs
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeResult(t *testing.T, resp *http.Response) *model.AnalysisResult {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	var result model.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &result
}

const headingDoc = "SECTION ONE\nWe may sell personal information to partners.\n\nSECTION TWO\nWe retain data for 10 years."

func TestHealth(t *testing.T) {
	srv, logs := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["catalog_version"] == "" {
		t.Errorf("Unexpected health body %v", body)
	}

	if !strings.Contains(logs.String(), `"path":"/health"`) {
		t.Errorf("Expected request to be logged, got %s", logs.String())
	}
}

func TestRules(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/rules")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Version    string     `json:"version"`
		Categories []string   `json:"categories"`
		Rules      []RuleInfo `json:"rules"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Rules) != 10 {
		t.Errorf("Expected 10 rules, got %d", len(body.Rules))
	}
	if body.Rules[0].ID != "DATA_SHARE_1" || body.Rules[0].Pattern == "" {
		t.Errorf("Unexpected first rule %+v", body.Rules[0])
	}
	if len(body.Categories) != 6 {
		t.Errorf("Expected 6 categories, got %v", body.Categories)
	}
}

func TestAnalyze(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	result := decodeResult(t, postJSON(t, srv.URL+"/api/analyze", AnalyzeRequest{Text: headingDoc, Source: "inline"}))

	if len(result.Clauses) != 2 {
		t.Errorf("Expected 2 clauses, got %d", len(result.Clauses))
	}
	if result.CategorySummary["data_sharing"] == 0 || result.CategorySummary["data_retention"] == 0 {
		t.Errorf("Unexpected summary %v", result.CategorySummary)
	}
	if result.Source != "inline" || result.AnalyzedAt.IsZero() {
		t.Errorf("Expected source and timestamp, got %q %v", result.Source, result.AnalyzedAt)
	}
	for _, m := range result.Matches {
		if headingDoc[m.EvidenceStart:m.EvidenceEnd] != m.EvidenceText {
			t.Errorf("Evidence offsets wrong for %s", m.RuleID)
		}
	}
}

func TestAnalyze_Filters(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	threshold := 0.85
	result := decodeResult(t, postJSON(t, srv.URL+"/api/analyze", AnalyzeRequest{Text: headingDoc, MinConfidence: &threshold}))
	if _, ok := result.CategorySummary["data_retention"]; ok {
		t.Errorf("Expected data_retention (0.75) to be filtered, got %v", result.CategorySummary)
	}

	result = decodeResult(t, postJSON(t, srv.URL+"/api/analyze", AnalyzeRequest{Text: headingDoc, Categories: []string{"data_retention"}}))
	if len(result.CategorySummary) != 1 || result.CategorySummary["data_retention"] == 0 {
		t.Errorf("Expected only data_retention, got %v", result.CategorySummary)
	}
}

func TestAnalyze_MaxClauseCharsOverride(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	long := strings.Repeat("We collect usage data from you. ", 20)
	budget := 100
	result := decodeResult(t, postJSON(t, srv.URL+"/api/analyze", AnalyzeRequest{Text: long, MaxClauseChars: &budget}))

	if result.MaxClauseChars != 100 {
		t.Errorf("Expected budget 100, got %d", result.MaxClauseChars)
	}
	for _, c := range result.Clauses {
		if len(c.Text) > 100 {
			t.Errorf("Clause %s exceeds budget: %d", c.ID, len(c.Text))
		}
	}
}

func TestAnalyze_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tooHigh := 1.5
	tests := []struct {
		name string
		body any
	}{
		{"bad confidence", AnalyzeRequest{Text: "x", MinConfidence: &tooHigh}},
		{"negative budget", map[string]any{"text": "x", "max_clause_chars": -1}},
		{"zero budget", map[string]any{"text": "x", "max_clause_chars": 0}},
		{"unknown field", map[string]any{"text": "x", "severity": "high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/analyze", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", resp.StatusCode)
			}
		})
	}

	resp, err := http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", resp.StatusCode)
	}
}

func TestAnalyze_TooLarge(t *testing.T) {
	srv, _ := newTestServer(t, func(c *model.Config) { c.Server.MaxUploadBytes = 64 })

	resp := postJSON(t, srv.URL+"/api/analyze", AnalyzeRequest{Text: strings.Repeat("a", 200)})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", resp.StatusCode)
	}
}

func TestAnalyzeUpload(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "terms.md")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("## Disputes\n\nAll claims go to binding arbitration.\n"))
	_ = mw.WriteField("categories", "legal_terms, data_sharing")
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/api/analyze/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	result := decodeResult(t, resp)

	if result.Source != "terms.md" {
		t.Errorf("Expected source terms.md, got %q", result.Source)
	}
	if !strings.HasPrefix(result.Text, "DISPUTES\n\n") {
		t.Errorf("Expected markdown to be extracted, got %q", result.Text)
	}
	if result.CategorySummary["legal_terms"] != 1 {
		t.Errorf("Expected one legal_terms finding, got %v", result.CategorySummary)
	}
}

func TestAnalyzeUpload_MissingFile(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("min_confidence", "0.5")
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/api/analyze/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestAnalyzeUpload_ZeroBudgetRejected(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "terms.txt")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("All claims go to binding arbitration."))
	_ = mw.WriteField("max_clause_chars", "0")
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/api/analyze/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for max_clause_chars 0, got %d", resp.StatusCode)
	}
}
