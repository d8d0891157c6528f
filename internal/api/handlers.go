package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/analyzer"
	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/source"
)

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Text           string   `json:"text"`
	Source         string   `json:"source,omitempty"`
	MaxClauseChars *int     `json:"max_clause_chars,omitempty"`
	MinConfidence  *float64 `json:"min_confidence,omitempty"`
	Categories     []string `json:"categories,omitempty"`
}

// RuleInfo describes one catalog rule in GET /api/rules
type RuleInfo struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Pattern     string  `json:"pattern"`
	Rationale   string  `json:"rationale"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	catalog := s.analyzer.Catalog()

	defs := catalog.Defs()
	infos := make([]RuleInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, RuleInfo{
			ID:          d.ID,
			Category:    d.Category,
			Description: d.Description,
			Confidence:  d.Confidence,
			Pattern:     d.Pattern,
			Rationale:   d.Rationale,
		})
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"version":    catalog.Version(),
		"categories": catalog.Categories(),
		"rules":      infos,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req AnalyzeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	filter := s.filter
	if req.MinConfidence != nil {
		filter.MinConfidence = *req.MinConfidence
	}
	if req.Categories != nil {
		filter.Categories = req.Categories
	}

	s.analyze(w, r, req.Source, req.Text, req.MaxClauseChars, filter)
}

// handleAnalyzeUpload accepts a multipart form with a "file" field and the
// optional fields max_clause_chars, min_confidence and categories (comma separated).
func (s *Server) handleAnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for form overhead
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	name := filepath.Base(header.Filename)
	text, err := source.Extract(source.FormatForFile(name), data)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var maxChars *int
	if v := r.FormValue("max_clause_chars"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "max_clause_chars must be an integer", http.StatusBadRequest)
			return
		}
		maxChars = &n
	}

	filter := s.filter
	if v := r.FormValue("min_confidence"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			jsonError(w, "min_confidence must be a number", http.StatusBadRequest)
			return
		}
		filter.MinConfidence = c
	}
	if v := r.FormValue("categories"); v != "" {
		filter.Categories = splitList(v)
	}

	s.analyze(w, r, name, text, maxChars, filter)
}

// analyze runs the analyzer with an optional clause budget override. A nil
// maxChars uses the server's budget.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, name, text string, maxChars *int, filter model.Filter) {
	if filter.MinConfidence < 0 || filter.MinConfidence > 1 {
		jsonError(w, "min_confidence must be between 0.0 and 1.0", http.StatusBadRequest)
		return
	}
	if maxChars != nil && *maxChars <= 0 {
		jsonError(w, "max_clause_chars must be positive", http.StatusBadRequest)
		return
	}

	a := s.analyzer
	if maxChars != nil && *maxChars != a.MaxClauseChars() {
		var err error
		a, err = analyzer.New(a.Catalog(), analyzer.Options{MaxClauseChars: *maxChars, MatchWorkers: s.workers})
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	result, err := a.Analyze(r.Context(), text)
	if err != nil {
		s.log.Error("analysis failed", "error", err)
		jsonError(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	result.Source = name
	result.AnalyzedAt = time.Now().UTC()
	if !filter.IsZero() {
		result = result.Filter(filter)
	}

	jsonResponse(w, http.StatusOK, result)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func jsonResponse(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonResponse(w, code, map[string]string{"error": msg})
}
