package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RobinCoderZhao/hotpush/pkg/scraper"
)

const (
	zhihuEndpoint = "https://www.zhihu.com/api/v3/feed/topstory/hot-lists/total?limit=10"
	zhihuHotURL   = "https://www.zhihu.com/hot"
	zhihuQuestion = "https://www.zhihu.com/question/"
)

// ZhihuSource fetches the Zhihu hot list.
type ZhihuSource struct {
	fetcher  *scraper.HTTPFetcher
	endpoint string
	timeout  time.Duration
}

// NewZhihuSource creates a Zhihu source. A nil client gets a default one.
func NewZhihuSource(client *http.Client, timeout time.Duration) *ZhihuSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ZhihuSource{
		fetcher:  scraper.NewHTTPFetcher(client),
		endpoint: zhihuEndpoint,
		timeout:  timeout,
	}
}

func (z *ZhihuSource) Name() string           { return "zhihu" }
func (z *ZhihuSource) Label() string          { return "知乎热榜" }
func (z *ZhihuSource) Timeout() time.Duration { return z.timeout }

type zhihuResponse struct {
	Data []struct {
		Target struct {
			ID    json.Number `json:"id"`
			Title string      `json:"title"`
			URL   string      `json:"url"`
		} `json:"target"`
		DetailText string `json:"detail_text"`
	} `json:"data"`
}

func (z *ZhihuSource) Fetch(ctx context.Context) ([]Item, error) {
	var resp zhihuResponse
	err := z.fetcher.GetJSON(ctx, z.endpoint, &scraper.FetchOptions{
		UserAgent: scraper.DefaultUserAgent,
		Referer:   zhihuHotURL,
	}, &resp)
	if err != nil {
		return nil, fromHTTP(z.Label(), err)
	}

	items := make([]Item, 0, MaxItems)
	for i, entry := range resp.Data {
		if len(items) == MaxItems {
			break
		}
		title := strings.TrimSpace(entry.Target.Title)
		if title == "" {
			continue
		}
		items = append(items, Item{
			Title: title,
			URL:   zhihuPublicURL(entry.Target.URL, entry.Target.ID.String()),
			Rank:  i + 1,
		})
	}
	return items, nil
}

// zhihuPublicURL rewrites an api.zhihu.com question link into its public form,
// falling back to the question id or the hot-list page.
func zhihuPublicURL(apiURL, id string) string {
	link := strings.TrimSpace(apiURL)
	link = strings.Replace(link, "api.zhihu.com", "www.zhihu.com", 1)
	link = strings.Replace(link, "/questions/", "/question/", 1)

	if u, err := url.Parse(link); err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != "" {
		return u.String()
	}
	if id != "" {
		return fmt.Sprintf("%s%s", zhihuQuestion, id)
	}
	return zhihuHotURL
}
