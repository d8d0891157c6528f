package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/pipeline"
	"github.com/ppiankov/clausewatch/internal/report"
)

// analysisFlags are the config overrides shared by analyze and batch.
// Only flags set on the command line replace config values.
type analysisFlags struct {
	rulesPath      string
	maxClauseChars int
	minConfidence  float64
	categories     []string
	matchWorkers   int
	httpTimeout    time.Duration
	userAgent      string
	maxBytes       int64
	noCache        bool
	noRobots       bool
	insecureTLS    bool
	httpProxy      string
	httpsProxy     string
	noFooter       bool
}

// register adds the rule and report flags, plus the fetch flags when fetch is set
func (f *analysisFlags) register(cmd *cobra.Command, fetch bool) {
	defaults := model.DefaultConfig()
	flags := cmd.Flags()

	// Rule flags
	flags.StringVar(&f.rulesPath, "rules", "", "rule catalog YAML file (default: built-in catalog)")
	flags.IntVar(&f.maxClauseChars, "max-clause-chars", defaults.Segmenter.MaxClauseChars, "maximum clause length in bytes")
	flags.Float64Var(&f.minConfidence, "min-confidence", 0, "drop findings below this confidence (0.0-1.0)")
	flags.StringSliceVar(&f.categories, "categories", nil, "only report these categories (comma-separated)")
	flags.IntVar(&f.matchWorkers, "match-workers", defaults.Concurrency.MatchWorkers, "clauses matched in parallel per document")

	// Report flags
	flags.BoolVar(&f.noFooter, "no-footer", false, "disable footer in Markdown reports")

	if !fetch {
		return
	}

	// HTTP flags
	flags.DurationVar(&f.httpTimeout, "http-timeout", defaults.HTTP.Timeout, "timeout for each HTTP request")
	flags.StringVar(&f.userAgent, "ua", defaults.HTTP.UserAgent, "HTTP User-Agent")
	flags.Int64Var(&f.maxBytes, "max-bytes", defaults.HTTP.MaxBodyBytes, "max document bytes to read")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable cache (force fresh fetch)")
	flags.BoolVar(&f.noRobots, "ignore-robots", false, "do not consult robots.txt before fetching")
	flags.BoolVar(&f.insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	flags.StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func (f *analysisFlags) apply(cmd *cobra.Command, cfg *model.Config) {
	changed := cmd.Flags().Changed

	if changed("rules") {
		cfg.Rules.CatalogPath = f.rulesPath
	}
	if changed("max-clause-chars") {
		cfg.Segmenter.MaxClauseChars = f.maxClauseChars
	}
	if changed("min-confidence") {
		cfg.Filter.MinConfidence = f.minConfidence
	}
	if changed("categories") {
		cfg.Filter.Categories = f.categories
	}
	if changed("match-workers") {
		cfg.Concurrency.MatchWorkers = f.matchWorkers
	}
	if changed("http-timeout") {
		cfg.HTTP.Timeout = f.httpTimeout
	}
	if changed("ua") {
		cfg.HTTP.UserAgent = f.userAgent
	}
	if changed("max-bytes") {
		cfg.HTTP.MaxBodyBytes = f.maxBytes
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.noRobots {
		cfg.HTTP.RespectRobots = false
	}
	if f.insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if changed("http-proxy") {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
	if f.noFooter {
		cfg.Output.IncludeFooter = false
	}
}

var (
	analyzeFormat  string
	analyzeReport  string
	analyzeQuiet   bool
	analyzeTimeout time.Duration
	analyzeOpts    analysisFlags
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url|->",
	Short: "Analyze one policy document and report concerning clauses",
	Long: `Analyze reads a single document and:
- Extracts its text (plain text, HTML, Markdown, PDF or DOCX)
- Splits it into clauses at headings, numbered sections and paragraphs
- Applies every rule in the catalog to every clause
- Reports each finding with its evidence text and character offsets

Use "-" to read the document from standard input.

Example:
  clausewatch analyze privacy.txt
  clausewatch analyze https://example.com/privacy --format json
  clausewatch analyze terms.pdf --min-confidence 0.8 --report terms.md
  cat policy.txt | clausewatch analyze - --categories data_sharing,legal_terms`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "stdout format: text, json, yaml or markdown")
	analyzeCmd.Flags().StringVar(&analyzeReport, "report", "", "also write the report to this file (format from extension)")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "do not print the report to stdout")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall analysis timeout")

	analyzeOpts.register(analyzeCmd, true)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	src := args[0]

	format, err := report.ParseFormat(analyzeFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzeOpts.apply(cmd, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	if cfg.Output.Verbose {
		fmt.Fprintf(stderr, "Analyzing: %s\n", src)
		fmt.Fprintf(stderr, "Timeout: %v\n", analyzeTimeout)
		fmt.Fprintf(stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(stderr)
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}
	p.SetStdin(cmd.InOrStdin())

	if cfg.Output.Verbose {
		catalog := p.Analyzer().Catalog()
		fmt.Fprintf(stderr, "⚙️  Loaded %d rules (catalog %s)\n", catalog.Len(), catalog.Version())
	}

	result, err := p.AnalyzeSource(ctx, src)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(stderr, "✓ Extracted %d bytes of text\n", len(result.Text))
		fmt.Fprintf(stderr, "✓ Segmented %d clauses\n", len(result.Clauses))
		fmt.Fprintf(stderr, "✓ Found %d matches in %d categories\n", len(result.Matches), len(result.CategorySummary))
		fmt.Fprintln(stderr)
	}

	renderer := report.NewRenderer(cfg.Output.IncludeFooter)

	if !analyzeQuiet {
		// color.NoColor is set when stdout is not a terminal or NO_COLOR is present
		out := renderer.WithColor(!cfg.Output.NoColor && !color.NoColor)
		if err := out.Render(cmd.OutOrStdout(), format, result); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}

	if analyzeReport != "" {
		if err := renderer.WriteFile(analyzeReport, result); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(stderr, "✓ Report written to %s\n", analyzeReport)
		}
	}

	return nil
}
