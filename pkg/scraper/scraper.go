// Package scraper provides HTTP content fetching and HTML parsing utilities.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultUserAgent is a desktop browser UA; the trending endpoints block obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// FetchOptions sets the request headers the trending endpoints check.
// The deadline comes from ctx.
type FetchOptions struct {
	UserAgent string // DefaultUserAgent when empty
	Referer   string
}

// StatusError is returned when the upstream answers with anything but 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// DecodeError is returned when a 200 body is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.URL, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// HTTPFetcher performs single-shot GET requests. It never retries.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new HTTP-based fetcher. A nil client gets a default one.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// Get retrieves url and returns the body of a 200 response.
func (f *HTTPFetcher) Get(ctx context.Context, url string, opts *FetchOptions) ([]byte, error) {
	if opts == nil {
		opts = &FetchOptions{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	if opts.Referer != "" {
		req.Header.Set("Referer", opts.Referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// GetJSON retrieves url and decodes the 200 response body into out.
func (f *HTTPFetcher) GetJSON(ctx context.Context, url string, opts *FetchOptions, out any) error {
	body, err := f.Get(ctx, url, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true,
	"iframe": true, "template": true, "head": true,
}

// blockTags end the current text line.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "td": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"ul": true, "ol": true, "table": true, "dd": true, "dt": true,
}

// segmentTags are inline elements that usually wrap a separate piece of text
// (a link, a counter, an author name) rather than part of a sentence.
var segmentTags = map[string]bool{
	"a": true, "span": true, "small": true, "time": true, "label": true,
	"button": true, "cite": true,
}

// TextLines converts HTML into visible text lines in document order.
// Inline elements are joined into one line; block elements start a new one.
// Blank lines are dropped and internal whitespace is collapsed.
func TextLines(htmlContent string) []string {
	return textLines(htmlContent, blockTags)
}

// TextSegments is TextLines with links, spans and similar inline wrappers
// also ending the current line, so "<a>title</a><span>10w+</span>" yields
// two entries. Emphasis such as <b> or <em> still stays in the line.
func TextSegments(htmlContent string) []string {
	breaks := make(map[string]bool, len(blockTags)+len(segmentTags))
	for t := range blockTags {
		breaks[t] = true
	}
	for t := range segmentTags {
		breaks[t] = true
	}
	return textLines(htmlContent, breaks)
}

func textLines(htmlContent string, breaks map[string]bool) []string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}

	var lines []string
	var cur strings.Builder
	flush := func() {
		line := strings.Join(strings.Fields(cur.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if breaks[n.Data] {
				flush()
			}
		}
		if n.Type == html.TextNode {
			// Hard newlines inside a text node split lines too.
			parts := strings.Split(n.Data, "\n")
			for i, p := range parts {
				if i > 0 {
					flush()
				}
				cur.WriteString(p)
				cur.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && breaks[n.Data] {
			flush()
		}
	}
	walk(doc)
	flush()
	return lines
}

// ExtractTitle returns the whitespace-collapsed text of the first <title>
// element, or "" if the page has none.
func ExtractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	var title *html.Node
	var find func(n *html.Node)
	find = func(n *html.Node) {
		for c := n.FirstChild; c != nil && title == nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "title" {
				title = c
				return
			}
			find(c)
		}
	}
	find(doc)
	if title == nil {
		return ""
	}

	var sb strings.Builder
	for c := title.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
