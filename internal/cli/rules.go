package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clausewatch/internal/rules"
)

var (
	rulesCatalogPath string
	rulesDumpYAML    bool
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate rule catalogs",
	Long: `Inspect the built-in rule catalog or validate a custom one.

A catalog is a YAML file with a version and an ordered list of rules.
Each rule has an id, category, confidence (0.0-1.0), an RE2 pattern that is
matched case-insensitively, and a rationale shown with every finding.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the rules of a catalog",
	Long: `List the rules of the built-in catalog, or of the catalog given with --rules.

Example:
  clausewatch rules list
  clausewatch rules list --yaml > my-rules.yaml
  clausewatch rules list --rules my-rules.yaml`,
	Args: cobra.NoArgs,
	RunE: runRulesList,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a rule catalog file",
	Long:  `Parse and compile a rule catalog, reporting the first invalid rule.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := rules.LoadCatalogFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d rules in %d categories (version %s)\n",
			args[0], catalog.Len(), len(catalog.Categories()), catalog.Version())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesValidateCmd)

	rulesListCmd.Flags().StringVar(&rulesCatalogPath, "rules", "", "rule catalog YAML file (default: built-in catalog)")
	rulesListCmd.Flags().BoolVar(&rulesDumpYAML, "yaml", false, "print the catalog as YAML")
}

func runRulesList(cmd *cobra.Command, args []string) error {
	catalog, err := rules.Load(rulesCatalogPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if rulesDumpYAML {
		if rulesCatalogPath == "" {
			_, err := out.Write(rules.DefaultCatalogYAML())
			return err
		}
		data, err := yaml.Marshal(rules.CatalogFile{Version: catalog.Version(), Rules: catalog.Defs()})
		if err != nil {
			return fmt.Errorf("marshal catalog: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	fmt.Fprintf(out, "Catalog %s: %d rules\n\n", catalog.Version(), catalog.Len())

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tCONFIDENCE\tDESCRIPTION")
	for _, def := range catalog.Defs() {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", def.ID, def.Category, def.Confidence, def.Description)
	}
	return tw.Flush()
}
