package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/citelink/internal/pipeline"
)

// mockFetcher returns a canned page per location
type mockFetcher struct {
	calls atomic.Int32
	fail  map[string]bool
	delay time.Duration
}

func (m *mockFetcher) FetchWithRetry(ctx context.Context, location string) (*pipeline.FetchResult, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail[location] {
		return nil, errors.New("fetch: connection refused")
	}
	return &pipeline.FetchResult{URL: location, FinalURL: location, HTML: "<html>" + location + "</html>"}, nil
}

func TestBatchFetcher_FetchAll(t *testing.T) {
	fetcher := &mockFetcher{
		fail:  map[string]bool{"https://example.org/b": true},
		delay: 5 * time.Millisecond,
	}
	batch := NewBatchFetcher(fetcher, 3)

	locations := []string{
		"https://example.org/a",
		"https://example.org/b",
		"https://example.org/c",
		"https://example.org/d",
	}
	outcomes := batch.FetchAll(context.Background(), locations)

	if len(outcomes) != len(locations) {
		t.Fatalf("expected %d outcomes, got %d", len(locations), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Location != locations[i] {
			t.Errorf("outcome %d: expected %s, got %s", i, locations[i], o.Location)
		}
	}
	if outcomes[1].Err == nil {
		t.Error("expected failure for b")
	}
	if outcomes[3].Err != nil || outcomes[3].Result.HTML != "<html>https://example.org/d</html>" {
		t.Errorf("unexpected outcome for d: %+v", outcomes[3])
	}
	if fetcher.calls.Load() != 4 {
		t.Errorf("expected 4 fetches, got %d", fetcher.calls.Load())
	}
}

func TestBatchFetcher_Empty(t *testing.T) {
	outcomes := NewBatchFetcher(&mockFetcher{}, 2).FetchAll(context.Background(), nil)
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestBatchFetcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := NewBatchFetcher(&mockFetcher{}, 2).FetchAll(ctx, []string{"https://example.org/a", "https://example.org/b"})
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err == nil && o.Result == nil {
			t.Errorf("expected either a result or an error for %s", o.Location)
		}
	}
}

func TestReadURLs(t *testing.T) {
	input := `# vitamins
https://lpi.oregonstate.edu/mic/vitamins/biotin

https://lpi.oregonstate.edu/mic/vitamins/folate
  https://lpi.oregonstate.edu/mic/vitamins/biotin
pages/local.html
`
	urls, err := ReadURLs(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadURLs failed: %v", err)
	}

	expected := []string{
		"https://lpi.oregonstate.edu/mic/vitamins/biotin",
		"https://lpi.oregonstate.edu/mic/vitamins/folate",
		"pages/local.html",
	}
	if !reflect.DeepEqual(urls, expected) {
		t.Errorf("expected %v, got %v", expected, urls)
	}
}

func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte("https://example.org/a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("ReadURLsFromFile failed: %v", err)
	}
	if len(urls) != 1 {
		t.Errorf("expected 1 URL, got %d", len(urls))
	}

	if _, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
