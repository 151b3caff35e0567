// Package pipeline fetches documents and runs the two-phase reference and
// association build.
package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/citelink/internal/cache"
	"github.com/ppiankov/citelink/internal/logger"
	"github.com/ppiankov/citelink/internal/util"
)

const maxFetchAttempts = 3

// fetchSleepFunc is replaced in tests to skip backoff
var fetchSleepFunc = time.Sleep

// ErrDisallowed is returned when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// RateWaiter blocks until a request to rawURL may proceed
type RateWaiter interface {
	WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error
}

// Fetcher retrieves HTML documents over HTTP(S) or from local files
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	pages      *cache.PageStore
	robots     *util.RobotsChecker
	limiter    RateWaiter
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via http.insecure_tls
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// HTTPClient returns the client used for document requests
func (f *Fetcher) HTTPClient() *http.Client {
	return f.httpClient
}

// SetCache enables the page cache
func (f *Fetcher) SetCache(pages *cache.PageStore) {
	f.pages = pages
}

// SetRobots enables robots.txt checks
func (f *Fetcher) SetRobots(robots *util.RobotsChecker) {
	f.robots = robots
}

// SetLimiter enables per-host rate limiting
func (f *Fetcher) SetLimiter(limiter RateWaiter) {
	f.limiter = limiter
}

// FetchResult contains a fetched document
type FetchResult struct {
	URL         string // As requested; the document identifier and base for relative links
	FinalURL    string // After redirects
	HTML        string
	ContentType string
	FromCache   bool
}

// Fetch retrieves one document. Locations without an http(s) scheme are read
// from disk.
func (f *Fetcher) Fetch(ctx context.Context, location string) (*FetchResult, error) {
	path, local, err := localPath(location)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if local {
		return f.readFile(location, path)
	}

	if f.pages != nil {
		if page, ok := f.pages.Get(location); ok {
			return &FetchResult{
				URL:         location,
				FinalURL:    page.FinalURL,
				HTML:        string(page.Body),
				ContentType: page.ContentType,
				FromCache:   true,
			}, nil
		}
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", location, ErrDisallowed)
		}
		crawlDelay = delay
	}

	if f.limiter != nil {
		if err := f.limiter.WaitWithDelay(ctx, location, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	result, err := f.get(ctx, location)
	if err != nil {
		return nil, err
	}

	if f.pages != nil {
		err := f.pages.Put(&cache.Page{
			URL:         location,
			FinalURL:    result.FinalURL,
			ContentType: result.ContentType,
			Body:        []byte(result.HTML),
			FetchedAt:   time.Now().UTC(),
		})
		if err != nil {
			logger.Warn("caching %s: %v", location, err)
		}
	}

	return result, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (f *Fetcher) readFile(location, path string) (*FetchResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer func() { _ = file.Close() }()

	body, err := io.ReadAll(io.LimitReader(file, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return &FetchResult{
		URL:         location,
		FinalURL:    (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
		HTML:        string(body),
		ContentType: "text/html",
	}, nil
}

// FetchWithRetry fetches with up to three attempts, backing off on
// rate limiting, server errors and connection failures
func (f *Fetcher) FetchWithRetry(ctx context.Context, location string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		result, err := f.Fetch(ctx, location)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == maxFetchAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		backoff := time.Duration(attempt) * time.Second
		logger.Debug("retrying %s in %v (attempt %d/%d): %v", location, backoff, attempt+1, maxFetchAttempts, err)
		fetchSleepFunc(backoff)
	}

	if isRetryableFetchError(lastErr) {
		return nil, fmt.Errorf("after %d attempts: %w", maxFetchAttempts, lastErr)
	}
	return nil, lastErr
}

// isRetryableFetchError reports whether a fetch error is worth retrying
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "unexpected status: 5") || strings.HasPrefix(msg, "unexpected status: 429") {
		return true
	}
	if strings.HasPrefix(msg, "fetch: ") {
		return strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") || strings.Contains(msg, "EOF")
	}
	return false
}

// localPath returns the filesystem path for file:// URLs and bare paths
func localPath(location string) (string, bool, error) {
	u, err := url.Parse(location)
	if err != nil {
		return location, true, nil
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		return "", false, nil
	case u.Scheme == "file":
		return filepath.FromSlash(u.Path), true, nil
	case u.Scheme == "" || len(u.Scheme) == 1: // Windows drive letters parse as a scheme
		return location, true, nil
	}
	return "", false, fmt.Errorf("unsupported scheme %q", u.Scheme)
}
