package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/citelink/internal/model"
	"github.com/ppiankov/citelink/internal/pipeline"
	"github.com/ppiankov/citelink/internal/worker"
	"github.com/spf13/cobra"
)

var (
	buildURLs    string
	buildJSONDir string
	buildTimeout time.Duration
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Extract references and build association tables in one run",
	Long: `Build runs both phases in one process. Every page's references are
extracted and written first; only then are the structured documents normalized
against the complete in-memory reference index.

Example:
  citelink build --urls urls.txt --json-dir output/json --output-dir output/tsv`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildURLs, "urls", "", "file listing page locations (required)")
	buildCmd.Flags().StringVar(&buildJSONDir, "json-dir", "", "directory of structured documents (required)")
	buildCmd.Flags().DurationVar(&buildTimeout, "batch-timeout", 30*time.Minute, "total timeout for the run")
	_ = buildCmd.MarkFlagRequired("urls")
	_ = buildCmd.MarkFlagRequired("json-dir")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	locations, err := worker.ReadURLsFromFile(buildURLs)
	if err != nil {
		return fmt.Errorf("read URLs: %w", err)
	}

	printBanner("citelink Build")
	fmt.Fprintf(os.Stderr, "  Pages:        %s (%d)\n", buildURLs, len(locations))
	fmt.Fprintf(os.Stderr, "  Documents:    %s\n", buildJSONDir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	p, err := pipeline.NewPipeline(cfg, newSource(cfg, newFetcher(cfg)))
	if err != nil {
		return &ConfigError{Err: err}
	}

	report := model.NewRunReport()
	result, err := p.Build(ctx, locations, buildJSONDir, report)
	report.Finish()
	if err != nil {
		printSummary(report, nil)
		return err
	}

	printSummary(report, result.Written)
	return runOutcome(report, len(result.References), true)
}
