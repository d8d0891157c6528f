package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clausewatch/internal/pipeline"
	"github.com/ppiankov/clausewatch/internal/report"
	"github.com/ppiankov/clausewatch/internal/worker"
)

var (
	concurrency   int
	outputDir     string
	batchFormat   string
	batchTimeout  time.Duration
	sourceTimeout time.Duration
	batchOpts     analysisFlags
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many documents listed in a file in parallel",
	Long: `Batch analyzes several documents concurrently:
- Read sources from the input file (one file path or URL per line)
- Skip blank lines, # comments and duplicates
- Analyze sources in parallel with a configurable worker count
- Write one report per source into the output directory

Example:
  clausewatch batch sources.txt
  clausewatch batch sources.txt --concurrency 10 --output-dir ./reports
  clausewatch batch sources.txt --format md --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./clausewatch-reports", "output directory for reports")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "json", "report format: text, json, yaml or markdown")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&sourceTimeout, "source-timeout", 2*time.Minute, "timeout for each source")

	batchOpts.register(batchCmd, true)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	format, err := report.ParseFormat(batchFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batchOpts.apply(cmd, cfg)
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Clausewatch Batch Processing\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Format:       %s\n", format)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(stderr, "\n")

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, sourceTimeout)

	fmt.Fprintf(stderr, "⚙️  Analyzing sources with %d workers...\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "\n")

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := report.NewRenderer(cfg.Output.IncludeFooter)
	names := make(map[string]int)

	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(stderr, "✗ %s: %v\n", r.Source, r.Error)
			continue
		}

		path := filepath.Join(outputDir, uniqueName(names, pipeline.ReportName(r.Source))+format.Ext())
		if err := renderer.WriteFile(path, r.Result); err != nil {
			r.Error = err
			fmt.Fprintf(stderr, "✗ %s: %v\n", r.Source, err)
			continue
		}

		fmt.Fprintf(stderr, "✓ %s (%d clauses, %d matches, %v)\n",
			r.Source, len(r.Result.Clauses), len(r.Result.Matches), r.Duration.Round(time.Millisecond))
	}

	succeeded, failed, matches := worker.Summary(results)

	// Summary
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d sources\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", succeeded)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(stderr, "  Matches:   %d\n", matches)
	fmt.Fprintf(stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if len(results) > 0 && succeeded == 0 {
		return fmt.Errorf("all %d sources failed", failed)
	}
	return nil
}

// uniqueName appends -2, -3, ... to names already handed out
func uniqueName(seen map[string]int, name string) string {
	seen[name]++
	if n := seen[name]; n > 1 {
		return name + "-" + strconv.Itoa(n)
	}
	return name
}
