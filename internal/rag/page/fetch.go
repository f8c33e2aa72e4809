package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies sitechat to the sites it reads.
	DefaultUserAgent = "Mozilla/5.0 (compatible; sitechat/1.0)"

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 10 << 20

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64

	// RequestsPerSecond paces requests across all callers of the fetcher.
	// Zero or less disables pacing.
	RequestsPerSecond float64
	Burst             int

	// Client overrides the HTTP client. Its Timeout is left untouched.
	Client *http.Client
}

// Response is a fetched document.
type Response struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects, used to resolve relative links.
	FinalURL    string
	Status      int
	ContentType string
	Body        []byte
}

// IsHTML reports whether the response declares an HTML body. A missing
// content type counts as HTML.
func (r *Response) IsHTML() bool {
	ct := strings.ToLower(r.ContentType)
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// Fetcher performs paced, size-limited GET requests. It is shared by the
// crawler and the page extractor so both honour the same request budget.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	limiter   *rate.Limiter
}

// NewFetcher returns a Fetcher with defaults applied.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Fetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

// Get fetches url. Any HTTP status is returned as a Response; only
// transport failures and cancellation produce an error, always a *FetchError.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Response{
		URL:         url,
		FinalURL:    final,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
