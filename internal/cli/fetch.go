package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/citelink/internal/logger"
	"github.com/ppiankov/citelink/internal/output"
	"github.com/ppiankov/citelink/internal/pipeline"
	"github.com/spf13/cobra"
)

var fetchOutput string

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <url-or-path>",
	Short: "Extract the reference table of a single page",
	Long: `Fetch reads one article page (http(s) URL, file:// URL or local path),
extracts its reference section and writes the reference table.

Each row holds the page URL, the citation's ordinal, its PubMed identifier when
the citation links to one, and the cleaned citation text.

Example:
  citelink fetch https://lpi.oregonstate.edu/mic/vitamins/biotin
  citelink fetch ./pages/biotin.html -o biotin.tsv`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", output.StdoutPath, `reference table path ("-" for stdout)`)
}

func runFetch(cmd *cobra.Command, args []string) error {
	location := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fetcher := newFetcher(cfg)
	p, err := pipeline.NewPipeline(cfg, fetcher)
	if err != nil {
		return &ConfigError{Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.HTTP.Timeout)
	defer cancel()

	doc, err := fetcher.FetchWithRetry(ctx, location)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	result, err := p.ExtractDocument(doc)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	if err := p.Writer().WriteReferences(fetchOutput, result.Records); err != nil {
		return fmt.Errorf("write references: %w", err)
	}

	if result.Empty() {
		logger.Flag("%s: no references found", location)
		return ErrNoReferences
	}
	logger.Success("%s: %d references (%s)", location, len(result.Records), result.Shape)
	if fetchOutput != output.StdoutPath {
		logger.Success("Wrote %s", fetchOutput)
	}
	return nil
}
