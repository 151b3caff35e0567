package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/citelink/internal/logger"
	"github.com/ppiankov/citelink/internal/pipeline"
)

// DocumentFetcher fetches one document
type DocumentFetcher interface {
	FetchWithRetry(ctx context.Context, location string) (*pipeline.FetchResult, error)
}

// BatchFetcher fetches documents concurrently and reports them in input order
type BatchFetcher struct {
	fetcher     DocumentFetcher
	concurrency int
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher DocumentFetcher, concurrency int) *BatchFetcher {
	return &BatchFetcher{
		fetcher:     fetcher,
		concurrency: concurrency,
	}
}

// FetchAll fetches every location. Locations left unfetched by cancellation
// carry the context error.
func (b *BatchFetcher) FetchAll(ctx context.Context, locations []string) []pipeline.FetchOutcome {
	outcomes := make([]pipeline.FetchOutcome, len(locations))
	if len(locations) == 0 {
		return outcomes
	}

	results := Map(ctx, b.concurrency, locations, func(ctx context.Context, location string) (*pipeline.FetchResult, error) {
		logger.Debug("fetching %s", location)
		return b.fetcher.FetchWithRetry(ctx, location)
	})

	done := make([]bool, len(locations))
	for _, r := range results {
		outcomes[r.Index] = pipeline.FetchOutcome{
			Location: locations[r.Index],
			Result:   r.Value,
			Err:      r.Err,
		}
		done[r.Index] = true
	}

	for i, ok := range done {
		if ok {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("not fetched")
		}
		outcomes[i] = pipeline.FetchOutcome{Location: locations[i], Err: err}
	}

	return outcomes
}

// ReadURLsFromFile reads locations from a file, or stdin for "-"
func ReadURLsFromFile(filePath string) ([]string, error) {
	if filePath == "-" {
		return ReadURLs(os.Stdin)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadURLs(file)
}

// ReadURLs reads one location per line, skipping blanks and # comments and
// dropping repeats while keeping first-seen order
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
