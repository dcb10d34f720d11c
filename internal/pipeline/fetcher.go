package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/papersift/internal/extract"
	"github.com/ppiankov/papersift/internal/naming"
	"github.com/ppiankov/papersift/internal/util"
	"github.com/ppiankov/papersift/internal/worker"
)

const (
	fetchAttempts = 3
	// landingLinks bounds how many PDF links of a landing page are tried
	landingLinks = 3
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher downloads remote PDF sources
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter // Per-host pacing from robots.txt crawl delays
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, respectRobots bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = 100 << 20
	}
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		limiter:   worker.NewLimiter(0, 1),
	}
	if respectRobots {
		f.robots = util.NewRobotsChecker(util.NormalizeUserAgent(userAgent), timeout)
	}
	return f
}

// FetchResult contains a downloaded document
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
	Filename    string // Suggested local filename
}

// IsRemote reports whether src is an http(s) URL rather than a local path
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch retrieves one document. Only PDF responses are accepted; an HTML
// article landing page is followed to the PDF it links to.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.fetch(ctx, rawURL, true)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, followLanding bool) (*FetchResult, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	// Read one byte past the limit to detect oversized bodies
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	finalURL := resp.Request.URL.String()
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		if followLanding && strings.Contains(strings.ToLower(contentType), "html") {
			if result, err := f.followLanding(ctx, body, finalURL); result != nil || err != nil {
				return result, err
			}
		}
		return nil, fmt.Errorf("not a PDF document (content type %q)", contentType)
	}

	return &FetchResult{
		Body:        body,
		ContentType: contentType,
		FinalURL:    finalURL,
		Filename:    fileNameFromURL(finalURL),
	}, nil
}

// followLanding tries the PDF links of a landing page in order. It returns
// nil, nil when the page links no PDF.
func (f *Fetcher) followLanding(ctx context.Context, page []byte, pageURL string) (*FetchResult, error) {
	links, err := extract.FindPDFLinks(string(page), pageURL)
	if err != nil || len(links) == 0 {
		return nil, nil
	}
	if len(links) > landingLinks {
		links = links[:landingLinks]
	}

	var lastErr error
	for _, link := range links {
		if f.robots != nil {
			allowed, _, err := f.robots.CanFetch(ctx, link.URL)
			if err != nil {
				lastErr = err
				continue
			}
			if !allowed {
				lastErr = fmt.Errorf("%s: %w", link.URL, ErrDisallowed)
				continue
			}
		}
		result, err := f.fetch(ctx, link.URL, false)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// FetchWithRetry fetches with exponential backoff on transient failures.
// robots.txt is consulted once before the first attempt.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if delay > 0 {
			if u, err := url.Parse(rawURL); err == nil {
				f.limiter.SetHostRate(u.Host, 1/delay.Seconds(), 1)
			}
		}
	}

	var lastErr error
	backoff := time.Second
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || attempt == fetchAttempts || ctx.Err() != nil {
			break
		}
		fetchSleepFunc(backoff)
		backoff *= 2
	}
	return nil, lastErr
}

// Download fetches rawURL into dir and returns the local path.
// An existing file with the same name is overwritten.
func (f *Fetcher) Download(ctx context.Context, rawURL, dir string) (string, error) {
	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	dest := filepath.Join(dir, result.Filename)
	if err := os.WriteFile(dest, result.Body, 0o644); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}
	return dest, nil
}

// isRetryableFetchError reports whether a fetch error is worth retrying:
// server errors, rate limiting and connection failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "unexpected status: ") {
		code := strings.TrimPrefix(msg, "unexpected status: ")
		return strings.HasPrefix(code, "5") || strings.HasPrefix(code, "429")
	}
	return strings.HasPrefix(msg, "fetch: ")
}

// fileNameFromURL derives a safe local .pdf filename from the last path segment
func fileNameFromURL(rawURL string) string {
	name := "download"
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(strings.Trim(parsed.Path, "/")); base != "." && base != "" {
			name = strings.TrimSuffix(base, path.Ext(base))
		} else if parsed.Host != "" {
			name = parsed.Host
		}
	}
	name = naming.Sanitize(strings.NewReplacer("_", "-", ".", "-", " ", "-").Replace(name))
	if name == "" {
		name = "download"
	}
	return name + ".pdf"
}
