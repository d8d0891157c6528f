package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/clausewatch/internal/cache"
	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/util"
	"github.com/ppiankov/clausewatch/internal/worker"
)

const (
	maxFetchAttempts = 3
	maxRedirects     = 5
)

var (
	// ErrDisallowedByRobots is returned when robots.txt forbids fetching a URL
	ErrDisallowedByRobots = errors.New("disallowed by robots.txt")
	// ErrBodyTooLarge is returned when a response exceeds the body limit
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// fetchSleepFunc waits out a retry backoff. It returns early with ctx's error
// when ctx ends and is replaced in tests to skip delays.
var fetchSleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusError reports a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher downloads documents over HTTP(S) politely: it honours robots.txt,
// rate-limits per host, retries transient failures and caches bodies.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	docs       *cache.Documents
}

// NewFetcher creates a fetcher from HTTP settings. docs may be nil to disable caching.
func NewFetcher(cfg model.HTTPConfig, docs *cache.Documents) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		docs:       docs,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, client)
	}
	return f
}

// FetchResult is a downloaded document
type FetchResult struct {
	URL         string
	FinalURL    string
	ContentType string
	Body        []byte
	FetchedAt   time.Time
	FromCache   bool
}

// Fetch returns the document at rawURL, from the cache when possible
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.docs != nil {
		if doc, ok := f.docs.Load(rawURL); ok {
			finalURL := doc.FinalURL
			if finalURL == "" {
				finalURL = doc.URL
			}
			return &FetchResult{
				URL:         rawURL,
				FinalURL:    finalURL,
				ContentType: doc.ContentType,
				Body:        doc.Body,
				FetchedAt:   doc.FetchedAt,
				FromCache:   true,
			}, nil
		}
	}

	if f.robots != nil {
		verdict, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots.txt: %w", err)
		}
		if !verdict.Allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowedByRobots)
		}
		if verdict.CrawlDelay > 0 {
			if u, err := url.Parse(rawURL); err == nil {
				f.limiter.SetCrawlDelay(u.Host, verdict.CrawlDelay)
			}
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if f.docs != nil {
		_ = f.docs.Store(&cache.Document{
			URL:         rawURL,
			FinalURL:    result.FinalURL,
			ContentType: result.ContentType,
			Body:        result.Body,
			FetchedAt:   result.FetchedAt,
		}, 0)
	}
	return result, nil
}

// FetchWithRetry performs the GET, retrying 429, 5xx and network errors with
// exponential backoff.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		result, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == maxFetchAttempts || ctx.Err() != nil {
			break
		}
		if err := fetchSleepFunc(ctx, backoff); err != nil {
			return nil, fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,text/markdown,application/pdf,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	var r io.Reader = resp.Body
	if f.maxBytes > 0 {
		r = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBytes)
	}

	return &FetchResult{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// isRetryableFetchError reports whether a failed fetch is worth repeating
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	// *url.Error is itself a net.Error, so look at what it wraps
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
