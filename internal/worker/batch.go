package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/clausewatch/internal/model"
)

// Analyzer analyses one document source (file path or URL)
type Analyzer interface {
	AnalyzeSource(ctx context.Context, source string) (*model.AnalysisResult, error)
}

// BatchResult is the outcome of analysing one source
type BatchResult struct {
	Source   string
	Result   *model.AnalysisResult
	Error    error
	Duration time.Duration
}

// BatchProcessor analyses many sources concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	perSource   time.Duration
}

// NewBatchProcessor creates a batch processor. perSourceTimeout <= 0 means no
// per-source deadline beyond the caller's context.
func NewBatchProcessor(analyzer Analyzer, concurrency int, perSourceTimeout time.Duration) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		perSource:   perSourceTimeout,
	}
}

// ProcessSources analyses sources concurrently. Results line up with sources;
// a source that never ran because ctx ended carries ctx's error.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*BatchResult {
	if len(sources) == 0 {
		return []*BatchResult{}
	}

	results, _ := Map(ctx, b.concurrency, sources, b.analyzeOne)

	out := make([]*BatchResult, len(sources))
	for i, src := range sources {
		if i < len(results) && results[i] != nil {
			out[i] = results[i]
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &BatchResult{Source: src, Error: fmt.Errorf("not analysed: %w", err)}
	}
	return out
}

func (b *BatchProcessor) analyzeOne(ctx context.Context, source string) *BatchResult {
	if b.perSource > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.perSource)
		defer cancel()
	}

	start := time.Now()
	result, err := b.analyzer.AnalyzeSource(ctx, source)
	return &BatchResult{
		Source:   source,
		Result:   result,
		Error:    err,
		Duration: time.Since(start),
	}
}

// ProcessFile reads sources from a list file and analyses them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads one source per line. Blank lines and lines starting
// with # are skipped; duplicates are dropped keeping the first occurrence.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}

// Summary counts successes and failures in a batch
func Summary(results []*BatchResult) (succeeded, failed, matches int) {
	for _, r := range results {
		if r.Error != nil {
			failed++
			continue
		}
		succeeded++
		if r.Result != nil {
			matches += len(r.Result.Matches)
		}
	}
	return succeeded, failed, matches
}
