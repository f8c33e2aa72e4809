// Package page fetches web pages and renders them as plain text for the
// knowledge base.
//
// Rendering keeps the reading order of the document: block elements start
// new lines, headings become "#"-prefixed lines, list items become "* "
// lines and images contribute their alt text. Script, style and head content
// is dropped. The rendered text is followed by one line of fallback signal
// (the meta description, else the title, else a slug of the URL) so that
// pages with little body text still carry something retrievable.
package page

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Page is the extracted content of one URL.
type Page struct {
	URL         string
	Title       string
	Description string
	Keywords    []string

	// Text is the rendered body followed by the fallback signal line.
	Text string
}

// Content returns the text the knowledge base ingests.
func (p *Page) Content() string {
	if p == nil {
		return ""
	}
	return p.Text
}

// Empty reports whether the page carries no text.
func (p *Page) Empty() bool {
	return strings.TrimSpace(p.Content()) == ""
}

// Extractor turns URLs into Pages.
type Extractor struct {
	fetcher *Fetcher
}

// NewExtractor returns an Extractor that fetches through f. A nil f uses a
// default Fetcher.
func NewExtractor(f *Fetcher) *Extractor {
	if f == nil {
		f = NewFetcher(FetcherConfig{})
	}
	return &Extractor{fetcher: f}
}

// Extract fetches url and renders it. A 5xx response yields an empty page and
// no error so callers can skip it quietly. Other non-2xx statuses, non-HTML
// bodies and transport failures return a *FetchError.
func (e *Extractor) Extract(ctx context.Context, url string) (*Page, error) {
	resp, err := e.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return FromResponse(resp)
}

// FromResponse renders an already fetched response with the same status
// rules as Extract.
func FromResponse(resp *Response) (*Page, error) {
	switch {
	case resp.Status >= http.StatusInternalServerError:
		return &Page{URL: resp.URL}, nil
	case resp.Status < 200 || resp.Status > 299:
		return nil, &FetchError{URL: resp.URL, Status: resp.Status}
	case !resp.IsHTML():
		return nil, &FetchError{URL: resp.URL, Status: resp.Status, Err: fmt.Errorf("%w: %s", ErrNotHTML, resp.ContentType)}
	}

	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		return nil, &FetchError{URL: resp.URL, Status: resp.Status, Err: fmt.Errorf("decode charset: %w", err)}
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &FetchError{URL: resp.URL, Status: resp.Status, Err: fmt.Errorf("parse html: %w", err)}
	}
	return render(resp.URL, doc), nil
}

func render(pageURL string, doc *html.Node) *Page {
	p := &Page{URL: pageURL}
	readHead(doc, p)

	var w textWriter
	w.walk(doc)
	body := w.String()

	signal := p.Description
	if signal == "" {
		signal = p.Title
	}
	if signal == "" {
		signal = Slug(pageURL)
	}
	p.Text = body + "\n" + signal
	return p
}

// readHead collects the title and the description and keywords meta tags.
func readHead(n *html.Node, p *Page) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Title:
			if p.Title == "" {
				p.Title = collapse(nodeText(n))
			}
		case atom.Meta:
			name := strings.ToLower(attr(n, "name"))
			content := strings.TrimSpace(attr(n, "content"))
			switch {
			case name == "description" && p.Description == "":
				p.Description = content
			case name == "keywords" && p.Keywords == nil:
				for _, k := range strings.Split(content, ",") {
					if k = strings.TrimSpace(k); k != "" {
						p.Keywords = append(p.Keywords, k)
					}
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		readHead(c, p)
	}
}

// Slug derives a readable name from the last path segment of rawURL, or
// the host when the path is empty.
func Slug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" || seg == "" {
		return u.Hostname()
	}
	if ext := path.Ext(seg); ext != "" && ext != seg {
		seg = strings.TrimSuffix(seg, ext)
	}
	seg = strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	return strings.TrimSpace(seg)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
