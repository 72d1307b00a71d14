package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestTextLines_BlocksAndInline(t *testing.T) {
	html := `<html><head><title>T</title></head><body>
<div><h2>热门文章</h2><ul><li><a href="/a">第一篇，<b>重要</b>新闻</a></li><li>第二篇</li></ul></div>
<p>Hello
world</p></body></html>`
	got := TextLines(html)
	want := []string{"热门文章", "第一篇， 重要 新闻", "第二篇", "Hello", "world"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TextLines = %q, want %q", got, want)
	}
}

func TestTextLines_SkipsScriptsAndHead(t *testing.T) {
	html := `<html><head><title>Page</title><style>.a{}</style></head><body><script>alert('x')</script><noscript>enable js</noscript><p>Content</p></body></html>`
	got := TextLines(html)
	if len(got) != 1 || got[0] != "Content" {
		t.Errorf("expected only 'Content', got %q", got)
	}
}

func TestTextSegments_SplitsInlineWrappers(t *testing.T) {
	html := `<div><a href="/a/1">国产大模型再突破，推理成本下降九成！</a> <span>阅读 10w+</span></div>` +
		`<div><a href="/a/2">央行宣布<b>降准</b>，释放长期资金</a><span>财经早餐</span></div>`
	got := TextSegments(html)
	want := []string{"国产大模型再突破，推理成本下降九成！", "阅读 10w+", "央行宣布 降准 ，释放长期资金", "财经早餐"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TextSegments = %q, want %q", got, want)
	}

	// TextLines keeps the same inline run together.
	if lines := TextLines(html); len(lines) != 2 {
		t.Errorf("TextLines = %q, want 2 lines", lines)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"plain", `<html><head><title>新榜 - 热门文章</title></head><body></body></html>`, "新榜 - 热门文章"},
		{"whitespace", "<html><head><title>\n  登录  新榜\n</title></head></html>", "登录 新榜"},
		{"missing", `<html><body><p>no title</p></body></html>`, ""},
		{"empty", `<html><head><title></title></head></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.html); got != tt.want {
				t.Errorf("ExtractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetJSON(t *testing.T) {
	var gotUA, gotReferer string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":1}`))
	}))
	defer ts.Close()

	var out struct {
		OK int `json:"ok"`
	}
	f := NewHTTPFetcher(ts.Client())
	err := f.GetJSON(context.Background(), ts.URL, &FetchOptions{Referer: "https://weibo.com/"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.OK != 1 {
		t.Errorf("ok = %d, want 1", out.OK)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("user agent = %q", gotUA)
	}
	if gotReferer != "https://weibo.com/" {
		t.Errorf("referer = %q", gotReferer)
	}
}

func TestGet_NonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := NewHTTPFetcher(nil).Get(context.Background(), ts.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", se.StatusCode)
	}
}

func TestGetJSON_Malformed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>blocked</html>`))
	}))
	defer ts.Close()

	var out map[string]any
	err := NewHTTPFetcher(nil).GetJSON(context.Background(), ts.URL, nil, &out)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}
