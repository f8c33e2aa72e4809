// Package crawler walks a website depth-first from a seed URL and reports
// every page under the seed.
//
// Scope is a plain string prefix test against the seed, so a seed of
// "https://example.com/docs" keeps "https://example.com/docs-archive" but
// drops "https://example.com/blog". Fragments are stripped before the
// visited check, which makes "page#a" and "page#b" one page.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/haasonsaas/sitechat/internal/observability"
	"github.com/haasonsaas/sitechat/internal/rag/page"
)

// DefaultMaxPages bounds a crawl when Config.MaxPages is unset.
const DefaultMaxPages = 500

// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
var ErrInvalidSeed = errors.New("invalid seed url")

// Config configures a Crawler.
type Config struct {
	// MaxPages stops the crawl after this many fetched pages.
	MaxPages int

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// VisitFunc receives every successfully fetched page. Returning an error
// logs it and skips the page's links.
type VisitFunc func(ctx context.Context, resp *page.Response) error

// Crawler performs depth-first crawls through a shared page.Fetcher.
type Crawler struct {
	fetcher  *page.Fetcher
	maxPages int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New returns a Crawler. A nil fetcher uses page defaults.
func New(fetcher *page.Fetcher, cfg Config) *Crawler {
	if fetcher == nil {
		fetcher = page.NewFetcher(page.FetcherConfig{})
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Crawler{
		fetcher:  fetcher,
		maxPages: cfg.MaxPages,
		logger:   cfg.Logger.With("component", "crawler"),
		metrics:  cfg.Metrics,
	}
}

// Crawl returns the URLs under seed in visit order.
func (c *Crawler) Crawl(ctx context.Context, seed string) ([]string, error) {
	return c.Walk(ctx, seed, nil)
}

// Walk crawls from seed and calls visit for each fetched page, so callers
// can use the body without fetching it a second time. Per-page failures are
// logged and skipped. Only an invalid seed or cancellation returns an error;
// on cancellation the pages visited so far are returned too.
func (c *Crawler) Walk(ctx context.Context, seed string, visit VisitFunc) ([]string, error) {
	root, err := normalize(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSeed, seed, err)
	}
	scope := root.String()

	visited := make(map[string]struct{})
	var order []string
	stack := []string{scope}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return order, err
		}
		if len(order) >= c.maxPages {
			c.logger.Warn("crawl page limit reached", "seed", scope, "max_pages", c.maxPages)
			break
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		resp, err := c.fetcher.Get(ctx, current)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return order, ctxErr
			}
			c.skip(current, err)
			continue
		}
		if resp.Status < 200 || resp.Status > 299 {
			c.skip(current, &page.FetchError{URL: current, Status: resp.Status})
			continue
		}

		order = append(order, current)
		c.metrics.PageCrawled()
		c.logger.Debug("page fetched", "url", current, "bytes", len(resp.Body))

		if visit != nil {
			if err := visit(ctx, resp); err != nil {
				c.logger.Warn("page visit failed", "url", current, "error", err)
				continue
			}
		}
		if !resp.IsHTML() {
			continue
		}

		links, err := Links(resp)
		if err != nil {
			c.skip(current, err)
			continue
		}
		for _, link := range links {
			if !strings.HasPrefix(link, scope) {
				continue
			}
			if _, seen := visited[link]; seen {
				continue
			}
			stack = append(stack, link)
		}
	}

	c.logger.Info("crawl finished", "seed", scope, "pages", len(order))
	return order, nil
}

func (c *Crawler) skip(u string, err error) {
	c.metrics.CrawlError()
	c.logger.Warn("skipping page", "url", u, "error", err)
}

// Links returns the absolute, fragment-free http(s) targets of every
// <a href> in resp, in document order. Relative links resolve against the
// final URL after redirects.
func Links(resp *page.Response) ([]string, error) {
	base, err := url.Parse(resp.FinalURL)
	if err != nil || resp.FinalURL == "" {
		base, err = url.Parse(resp.URL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
	}

	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Base {
			if href, ok := attr(n, "href"); ok {
				if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
					base = b
				}
			}
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href, ok := attr(n, "href"); ok {
				if link, ok := resolve(base, href); ok {
					links = append(links, link)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links, nil
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

// normalize validates a seed and strips its fragment.
func normalize(seed string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(seed))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}
