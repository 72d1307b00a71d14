package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/RobinCoderZhao/hotpush/pkg/scraper"
)

const (
	newrankDefaultURL = "https://www.newrank.cn/hotInfo?platform=GZH"
	newrankSettle     = 5 * time.Second
	newrankTimeout    = 60 * time.Second
)

// NewrankConfig configures the browser-rendered Newrank source.
type NewrankConfig struct {
	Cookie       string        `yaml:"cookie" env:"NEWRANK_COOKIE"`
	URL          string        `yaml:"url"`
	Settle       time.Duration `yaml:"settle"`
	Timeout      time.Duration `yaml:"timeout"`
	ChromePath   string        `yaml:"chrome_path" env:"HOTPUSH_CHROME_PATH"`
	NoSandbox    bool          `yaml:"no_sandbox" env:"HOTPUSH_CHROME_NO_SANDBOX"`
	DebugHTMLDir string        `yaml:"debug_html_dir"`
}

// Page is a rendered page snapshot.
type Page struct {
	URL  string // final location after redirects
	HTML string
}

// RenderRequest describes one page load.
type RenderRequest struct {
	URL       string
	Cookies   []*http.Cookie
	Settle    time.Duration
	UserAgent string
}

// Renderer loads a page in a browser and returns the settled DOM.
// Implementations own the browser for the duration of one call.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (*Page, error)
}

// NewrankSource scrapes the Newrank hot-article listing through a headless browser.
type NewrankSource struct {
	cfg      NewrankConfig
	renderer Renderer
	logger   *slog.Logger
}

// NewNewrankSource creates a Newrank source. Zero config values get defaults.
func NewNewrankSource(cfg NewrankConfig, renderer Renderer, logger *slog.Logger) *NewrankSource {
	if cfg.URL == "" {
		cfg.URL = newrankDefaultURL
	}
	if cfg.Settle <= 0 {
		cfg.Settle = newrankSettle
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = newrankTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NewrankSource{cfg: cfg, renderer: renderer, logger: logger}
}

func (n *NewrankSource) Name() string           { return "newrank" }
func (n *NewrankSource) Label() string          { return "新榜热文" }
func (n *NewrankSource) Timeout() time.Duration { return n.cfg.Timeout }

// HasCookie reports whether a session cookie is configured.
func (n *NewrankSource) HasCookie() bool { return strings.TrimSpace(n.cfg.Cookie) != "" }

func (n *NewrankSource) Fetch(ctx context.Context) ([]Item, error) {
	if !n.HasCookie() {
		return nil, newFetchError(n.Label(), KindMissingCookie, nil)
	}
	cookies, err := ParseCookies(n.cfg.Cookie, n.cfg.URL)
	if err != nil {
		return nil, newFetchError(n.Label(), KindMalformedCookie, err)
	}

	page, err := n.renderer.Render(ctx, RenderRequest{
		URL:       n.cfg.URL,
		Cookies:   cookies,
		Settle:    n.cfg.Settle,
		UserAgent: scraper.DefaultUserAgent,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newFetchError(n.Label(), KindTimeout, err)
		}
		return nil, newFetchError(n.Label(), KindTransport, err)
	}

	n.dumpHTML(page)

	if isLoginURL(page.URL) {
		return nil, newFetchError(n.Label(), KindCookieRejected, fmt.Errorf("redirected to %s", page.URL))
	}

	base := page.URL
	if base == "" {
		base = n.cfg.URL
	}
	items := ExtractTitles(page.HTML, base)
	if len(items) == 0 {
		if hasLoginPrompt(page.HTML) {
			return nil, newFetchError(n.Label(), KindCookieRejected, errors.New("page asks for login"))
		}
		return nil, newFetchError(n.Label(), KindUnrecognizedPage, &PageError{URL: base, Title: scraper.ExtractTitle(page.HTML)})
	}
	return items, nil
}

func (n *NewrankSource) dumpHTML(page *Page) {
	if n.cfg.DebugHTMLDir == "" {
		return
	}
	name := fmt.Sprintf("newrank-%s.html", time.Now().Format("20060102-150405"))
	path := filepath.Join(n.cfg.DebugHTMLDir, name)
	if err := os.WriteFile(path, []byte(page.HTML), 0o644); err != nil {
		n.logger.Warn("write debug html", "path", path, "error", err)
		return
	}
	n.logger.Debug("debug html written", "path", path)
}

// ParseCookies splits a "a=1; b=2" cookie string into cookies scoped to the
// registrable domain of pageURL. Malformed pairs are skipped.
func ParseCookies(raw, pageURL string) ([]*http.Cookie, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid page url %q", pageURL)
	}
	domain := cookieDomain(u.Hostname())

	var cookies []*http.Cookie
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t\r\n") {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:   name,
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   "/",
		})
	}
	if len(cookies) == 0 {
		return nil, errors.New("cookie string has no name=value pairs")
	}
	return cookies, nil
}

func cookieDomain(host string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return "." + etld1
}

func isLoginURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	return strings.Contains(p, "login") || strings.Contains(p, "passport") ||
		strings.HasPrefix(strings.ToLower(u.Hostname()), "passport.")
}

var loginPrompts = []string{"请登录", "登录后查看", "扫码登录", "账号登录", "立即登录"}

func hasLoginPrompt(htmlContent string) bool {
	for _, line := range scraper.TextLines(htmlContent) {
		for _, p := range loginPrompts {
			if strings.Contains(line, p) {
				return true
			}
		}
	}
	return false
}

// ExtractTitles returns up to MaxItems headline items found in a rendered
// listing page, in document order. Each link or span is classified on its own,
// so inline counters and author names are neighbours rather than part of a title. Links that cannot be resolved fall back to
// pageURL.
func ExtractTitles(htmlContent, pageURL string) []Item {
	lines := scraper.TextSegments(htmlContent)

	seen := make(map[string]bool)
	var titles []string
	for i, line := range lines {
		var tc TitleContext
		if i > 0 {
			tc.Prev = lines[i-1]
		}
		if i+1 < len(lines) {
			tc.Next = lines[i+1]
		}
		if !looksLikeTitle(line, tc) {
			continue
		}
		exact, prefix := dedupKeys(line)
		if seen[exact] || seen["prefix:"+prefix] {
			continue
		}
		seen[exact] = true
		seen["prefix:"+prefix] = true
		titles = append(titles, strings.TrimSpace(line))
		if len(titles) == MaxItems {
			break
		}
	}
	if len(titles) == 0 {
		return nil
	}

	links := newLinkIndex(htmlContent, pageURL)
	items := make([]Item, 0, len(titles))
	for i, t := range titles {
		items = append(items, Item{Title: t, URL: links.resolve(t), Rank: i + 1})
	}
	return items
}

type anchor struct {
	text  string
	title string
	href  string
}

// linkIndex resolves headline text to the anchor that carries it.
type linkIndex struct {
	base     *url.URL
	fallback string
	anchors  []anchor
}

func newLinkIndex(htmlContent, pageURL string) *linkIndex {
	idx := &linkIndex{fallback: pageURL}
	idx.base, _ = url.Parse(pageURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return idx
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := idx.absolute(href)
		if abs == "" {
			return
		}
		idx.anchors = append(idx.anchors, anchor{
			text:  normalizeTitle(s.Text()),
			title: normalizeTitle(s.AttrOr("title", "")),
			href:  abs,
		})
	})
	return idx
}

func (idx *linkIndex) resolve(title string) string {
	t := normalizeTitle(title)
	for _, a := range idx.anchors {
		if a.title != "" && (a.title == t || strings.Contains(a.title, t)) {
			return a.href
		}
		if a.text == "" {
			continue
		}
		if strings.Contains(a.text, t) {
			return a.href
		}
		// The line may carry trailing inline text beyond the anchor.
		if len([]rune(a.text)) >= minTitleRunes && strings.Contains(t, a.text) {
			return a.href
		}
	}
	return idx.fallback
}

// absolute resolves href against the page URL and keeps only http(s) links.
func (idx *linkIndex) absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if idx.base != nil {
		ref = idx.base.ResolveReference(ref)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return ""
	}
	return ref.String()
}
