package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeRenderer renders pages in a throwaway headless Chrome.
// Every Render starts a fresh browser with a temporary profile.
type ChromeRenderer struct {
	ExecPath  string
	NoSandbox bool
	Logger    *slog.Logger
}

// NewChromeRenderer creates a renderer from the Newrank browser settings.
func NewChromeRenderer(cfg NewrankConfig, logger *slog.Logger) *ChromeRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeRenderer{ExecPath: cfg.ChromePath, NoSandbox: cfg.NoSandbox, Logger: logger}
}

func (c *ChromeRenderer) allocatorOptions(userAgent string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.WindowSize(1366, 900),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	if c.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// withBrowser runs fn inside a browser session and always tears the browser
// down before returning, whatever fn does.
func withBrowser(ctx context.Context, opts []chromedp.ExecAllocatorOption, logger *slog.Logger, fn func(ctx context.Context) error) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	return fn(browserCtx)
}

// Render injects the cookies, loads req.URL, waits req.Settle and snapshots the DOM.
func (c *ChromeRenderer) Render(ctx context.Context, req RenderRequest) (*Page, error) {
	params := make([]*network.CookieParam, 0, len(req.Cookies))
	for _, ck := range req.Cookies {
		params = append(params, &network.CookieParam{
			Name:   ck.Name,
			Value:  ck.Value,
			Domain: ck.Domain,
			Path:   ck.Path,
		})
	}

	var page Page
	err := withBrowser(ctx, c.allocatorOptions(req.UserAgent), c.Logger, func(bctx context.Context) error {
		return chromedp.Run(bctx,
			network.Enable(),
			chromedp.ActionFunc(func(ctx context.Context) error {
				if len(params) == 0 {
					return nil
				}
				return network.SetCookies(params).Do(ctx)
			}),
			chromedp.Navigate(req.URL),
			chromedp.Sleep(req.Settle),
			chromedp.Location(&page.URL),
			chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.URL, err)
	}
	c.Logger.Debug("page rendered", "url", page.URL, "bytes", len(page.HTML))
	return &page, nil
}
