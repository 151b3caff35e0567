package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/citelink/internal/model"
	"github.com/ppiankov/citelink/internal/pipeline"
	"github.com/ppiankov/citelink/internal/refindex"
	"github.com/spf13/cobra"
)

var associateReferences string

// associateCmd represents the associate command
var associateCmd = &cobra.Command{
	Use:   "associate <json-dir>",
	Short: "Build association tables from structured documents",
	Long: `Associate reads every *.json structured document under a directory and
writes one <category>.tsv per relationship category plus a combined table.

Each relationship's in-text reference markers are resolved against a reference
table written earlier by "citelink batch"; markers without a PubMed identifier
are left out of the publications column.

Example:
  citelink associate output/json --references output/tsv/references.tsv
  citelink associate output/json --references refs.tsv --output-dir tables --role-policy lenient`,
	Args: cobra.ExactArgs(1),
	RunE: runAssociate,
}

func init() {
	rootCmd.AddCommand(associateCmd)
	associateCmd.Flags().StringVar(&associateReferences, "references", "", "reference table written by batch (required)")
	_ = associateCmd.MarkFlagRequired("references")
}

func runAssociate(cmd *cobra.Command, args []string) error {
	jsonDir := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	index, err := refindex.LoadFile(associateReferences)
	if err != nil {
		return fmt.Errorf("load references: %w", err)
	}

	printBanner("citelink Associations")
	fmt.Fprintf(os.Stderr, "  Documents:    %s\n", jsonDir)
	fmt.Fprintf(os.Stderr, "  References:   %s (%d resolvable markers)\n", associateReferences, index.Len())
	fmt.Fprintf(os.Stderr, "  Role policy:  %s\n", cfg.Normalize.RolePolicy)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	p, err := pipeline.NewPipeline(cfg, nil)
	if err != nil {
		return &ConfigError{Err: err}
	}

	report := model.NewRunReport()
	acc, err := p.AssociateDir(jsonDir, index, report)
	if err != nil {
		return err
	}

	written, err := p.Writer().WriteAssociations(cfg.Output.Dir, cfg.Output.CombinedName, acc, cfg.Output.ReferenceName)
	if err != nil {
		return fmt.Errorf("write associations: %w", err)
	}
	report.Finish()

	printSummary(report, written)
	return runOutcome(report, 0, false)
}
