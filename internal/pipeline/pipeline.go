package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/analyzer"
	"github.com/ppiankov/clausewatch/internal/cache"
	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/rules"
	"github.com/ppiankov/clausewatch/internal/source"
)

// StdinSource names standard input as a document source
const StdinSource = "-"

// Pipeline loads documents from files or URLs, analyses them and applies the
// configured match filter.
type Pipeline struct {
	analyzer *analyzer.Analyzer
	fetcher  *Fetcher
	filter   model.Filter
	maxBytes int64
	stdin    io.Reader
	now      func() time.Time
}

// NewPipeline validates cfg and builds the rule catalog, analyzer and fetcher
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	catalog, err := rules.Load(cfg.Rules.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	a, err := analyzer.New(catalog, analyzer.Options{
		MaxClauseChars: cfg.Segmenter.MaxClauseChars,
		MatchWorkers:   cfg.Concurrency.MatchWorkers,
	})
	if err != nil {
		return nil, err
	}

	docs := cache.NewDocuments(cache.Open(cfg.Cache))

	return &Pipeline{
		analyzer: a,
		fetcher:  NewFetcher(cfg.HTTP, docs),
		filter:   cfg.FilterSpec(),
		maxBytes: cfg.HTTP.MaxBodyBytes,
		stdin:    os.Stdin,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Analyzer returns the pipeline's analyzer
func (p *Pipeline) Analyzer() *analyzer.Analyzer {
	return p.analyzer
}

// SetStdin replaces the reader used for the "-" source
func (p *Pipeline) SetStdin(r io.Reader) {
	p.stdin = r
}

// IsURL reports whether source names an HTTP(S) resource
func IsURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LoadText returns the analysable text of a source: a URL, a local file, or
// "-" for standard input.
func (p *Pipeline) LoadText(ctx context.Context, src string) (string, error) {
	switch {
	case src == StdinSource:
		return p.readStdin()
	case IsURL(src):
		fetched, err := p.fetcher.Fetch(ctx, src)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", src, err)
		}
		format := source.FormatForContentType(fetched.ContentType, fetched.FinalURL)
		return source.Extract(format, fetched.Body)
	default:
		return source.ExtractFile(src, p.maxBytes)
	}
}

func (p *Pipeline) readStdin() (string, error) {
	r := p.stdin
	if p.maxBytes > 0 {
		r = io.LimitReader(r, p.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return "", fmt.Errorf("stdin exceeds size limit of %d bytes", p.maxBytes)
	}
	return string(data), nil
}

// AnalyzeText analyses text already in memory. name is recorded as the source.
func (p *Pipeline) AnalyzeText(ctx context.Context, name, text string) (*model.AnalysisResult, error) {
	result, err := p.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	result.Source = name
	result.AnalyzedAt = p.now()

	if !p.filter.IsZero() {
		result = result.Filter(p.filter)
	}
	return result, nil
}

// AnalyzeSource loads and analyses one source
func (p *Pipeline) AnalyzeSource(ctx context.Context, src string) (*model.AnalysisResult, error) {
	text, err := p.LoadText(ctx, src)
	if err != nil {
		return nil, err
	}

	name := src
	if src == StdinSource {
		name = "stdin"
	}
	return p.AnalyzeText(ctx, name, text)
}

// ReportName derives a file-system friendly report name from a source
func ReportName(src string) string {
	var name string
	if u, err := url.Parse(src); err == nil && u.Host != "" {
		p := strings.TrimRight(u.Path, "/")
		name = u.Host + strings.TrimSuffix(p, path.Ext(p))
	} else {
		base := filepath.Base(src)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 || src == StdinSource {
		return "report"
	}
	return b.String()
}
