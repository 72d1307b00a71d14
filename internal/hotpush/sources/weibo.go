package sources

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/RobinCoderZhao/hotpush/pkg/scraper"
)

const (
	weiboEndpoint  = "https://weibo.com/ajax/side/hotSearch"
	weiboSearchURL = "https://s.weibo.com/weibo?q="
	weiboReferer   = "https://weibo.com/"
)

// WeiboSource fetches the Weibo realtime hot-search list.
type WeiboSource struct {
	fetcher  *scraper.HTTPFetcher
	endpoint string
	timeout  time.Duration
}

// NewWeiboSource creates a Weibo source. A nil client gets a default one.
func NewWeiboSource(client *http.Client, timeout time.Duration) *WeiboSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeiboSource{
		fetcher:  scraper.NewHTTPFetcher(client),
		endpoint: weiboEndpoint,
		timeout:  timeout,
	}
}

func (w *WeiboSource) Name() string           { return "weibo" }
func (w *WeiboSource) Label() string          { return "微博热搜" }
func (w *WeiboSource) Timeout() time.Duration { return w.timeout }

type weiboResponse struct {
	OK   int `json:"ok"`
	Data struct {
		Realtime []weiboEntry `json:"realtime"`
	} `json:"data"`
}

type weiboEntry struct {
	Word      string `json:"word"`
	Note      string `json:"note"`
	RealPos   int    `json:"realpos"`
	IsAd      int    `json:"is_ad"`
	LabelName string `json:"label_name"`
}

func (w *WeiboSource) Fetch(ctx context.Context) ([]Item, error) {
	var resp weiboResponse
	err := w.fetcher.GetJSON(ctx, w.endpoint, &scraper.FetchOptions{
		UserAgent: scraper.DefaultUserAgent,
		Referer:   weiboReferer,
	}, &resp)
	if err != nil {
		return nil, fromHTTP(w.Label(), err)
	}
	if resp.OK != 1 {
		return nil, newFetchError(w.Label(), KindBadResponse, errors.New("weibo: response ok flag not set"))
	}

	return weiboItems(resp.Data.Realtime), nil
}

// weiboItems drops promoted and unranked entries, orders the rest by their
// realtime position and keeps the top MaxItems.
func weiboItems(entries []weiboEntry) []Item {
	organic := make([]weiboEntry, 0, len(entries))
	for _, e := range entries {
		if e.RealPos <= 0 || e.IsAd == 1 {
			continue
		}
		if strings.TrimSpace(e.Word) == "" && strings.TrimSpace(e.Note) == "" {
			continue
		}
		organic = append(organic, e)
	}
	sort.SliceStable(organic, func(i, j int) bool { return organic[i].RealPos < organic[j].RealPos })

	items := make([]Item, 0, MaxItems)
	for _, e := range organic {
		if len(items) == MaxItems {
			break
		}
		title := strings.TrimSpace(e.Note)
		if title == "" {
			title = strings.TrimSpace(e.Word)
		}
		keyword := strings.TrimSpace(e.Word)
		if keyword == "" {
			keyword = title
		}
		items = append(items, Item{
			Title: title,
			URL:   weiboSearchURL + url.QueryEscape("#"+keyword+"#"),
			Rank:  e.RealPos,
		})
	}
	return items
}
