package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/citelink/internal/model"
	"github.com/ppiankov/citelink/internal/pipeline"
	"github.com/ppiankov/citelink/internal/worker"
	"github.com/spf13/cobra"
)

var (
	batchOutput  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <urls-file>",
	Short: "Extract references from every page listed in a file",
	Long: `Batch builds one reference table from many pages:
- Read page locations from the input file (one per line, # comments, "-" for stdin)
- Fetch pages in parallel with per-host rate limiting
- Extract references from each page in input order
- Write one combined reference table (header-only when nothing was found)

Pages without references are flagged; failed pages are listed in the summary
and do not stop the batch.

Example:
  citelink batch urls.txt
  citelink batch urls.txt --workers 8 -o output/tsv/references.tsv`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "reference table path (default: <output-dir>/references.tsv)")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 30*time.Minute, "total timeout for the batch")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	locations, err := worker.ReadURLsFromFile(file)
	if err != nil {
		return fmt.Errorf("read URLs: %w", err)
	}

	outPath := batchOutput
	if outPath == "" {
		outPath = filepath.Join(cfg.Output.Dir, cfg.Output.ReferenceName)
	}

	printBanner("citelink Reference Extraction")
	fmt.Fprintf(os.Stderr, "  Input file:   %s (%d pages)\n", file, len(locations))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", outPath)
	fmt.Fprintf(os.Stderr, "\n")

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	p, err := pipeline.NewPipeline(cfg, newSource(cfg, newFetcher(cfg)))
	if err != nil {
		return &ConfigError{Err: err}
	}

	report := model.NewRunReport()
	records := p.ExtractReferences(ctx, locations, report)

	if err := p.Writer().WriteReferences(outPath, records); err != nil {
		return fmt.Errorf("write references: %w", err)
	}
	report.Finish()

	printSummary(report, []string{outPath})
	return runOutcome(report, len(records), true)
}
