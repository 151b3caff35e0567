package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/citelink/internal/cache"
	"github.com/ppiankov/citelink/internal/model"
	"github.com/ppiankov/citelink/internal/pipeline"
	"github.com/ppiankov/citelink/internal/util"
	"github.com/ppiankov/citelink/internal/worker"
)

// newFetcher builds the document fetcher with cache, robots and rate limiting
// as configured
func newFetcher(cfg *model.Config) *pipeline.Fetcher {
	fetcher := pipeline.NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	)

	if cfg.Cache.Enabled {
		fetcher.SetCache(newPageStore(cfg.Cache))
	}
	if cfg.Robots.Respect {
		fetcher.SetRobots(util.NewRobotsChecker(fetcher.HTTPClient(), cfg.HTTP.UserAgent, time.Hour))
	}
	fetcher.SetLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize))

	return fetcher
}

// newPageStore keeps pages in memory only, adding the disk layer when
// cache.disk is set
func newPageStore(cfg model.CacheConfig) *cache.PageStore {
	if cfg.Disk {
		layered := cache.NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
		return cache.NewPageStore(layered, cfg.DiskTTL)
	}
	return cache.NewPageStore(cache.NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), 0)
}

// newSource returns a concurrent source when more than one worker is configured
func newSource(cfg *model.Config, fetcher *pipeline.Fetcher) pipeline.DocumentSource {
	if cfg.Concurrency.Workers > 1 {
		return worker.NewBatchFetcher(fetcher, cfg.Concurrency.Workers)
	}
	return fetcher
}

// runOutcome maps a finished report to the command error
func runOutcome(report *model.RunReport, references int, requireReferences bool) error {
	if requireReferences && references == 0 {
		return ErrNoReferences
	}
	if report.HasFailures() {
		return fmt.Errorf("%w: %d of %d", ErrDocumentFailures, len(report.Failures), report.Documents)
	}
	return nil
}

func printBanner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}

// printSummary writes the run report to stderr
func printSummary(report *model.RunReport, written []string) {
	printBanner("Run Complete")

	fmt.Fprintf(os.Stderr, "  Documents:     %d\n", report.Documents)
	fmt.Fprintf(os.Stderr, "  References:    %d (%d with PubMed id)\n", report.References, report.ResolvedIDs)
	if report.SkippedCitations > 0 {
		fmt.Fprintf(os.Stderr, "  Skipped cites: %d\n", report.SkippedCitations)
	}
	if len(report.EmptyDocuments) > 0 {
		fmt.Fprintf(os.Stderr, "  No references: %d\n", len(report.EmptyDocuments))
	}
	if report.Associations > 0 || report.TotalSkippedRelationships() > 0 {
		fmt.Fprintf(os.Stderr, "  Associations:  %d\n", report.Associations)
		fmt.Fprintf(os.Stderr, "  Skipped rels:  %d\n", report.TotalSkippedRelationships())
		for _, reason := range report.SkipReasons() {
			fmt.Fprintf(os.Stderr, "    %-32s %d\n", reason, report.SkippedRelationships[reason])
		}
	}
	fmt.Fprintf(os.Stderr, "  Failures:      %d\n", len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "    ✗ [%s] %s: %s\n", f.Phase, f.DocumentID, f.Message)
	}
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(os.Stderr, "  Duration:      %v\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}

	if len(written) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		for _, path := range written {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
		}
	}
	fmt.Fprintf(os.Stderr, "\n")
}
