package sources

import (
	"errors"
	"fmt"

	"github.com/RobinCoderZhao/hotpush/pkg/scraper"
)

// ErrorKind classifies why a source produced no list.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindBadResponse
	KindEmpty
	KindMissingCookie
	KindMalformedCookie
	KindCookieRejected
	KindUnrecognizedPage
	KindTimeout
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindBadResponse:
		return "bad_response"
	case KindEmpty:
		return "empty"
	case KindMissingCookie:
		return "missing_cookie"
	case KindMalformedCookie:
		return "malformed_cookie"
	case KindCookieRejected:
		return "cookie_rejected"
	case KindUnrecognizedPage:
		return "unrecognized_page"
	case KindTimeout:
		return "timeout"
	case KindPanic:
		return "panic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FetchError is the error every source failure is reported as.
type FetchError struct {
	Source string // display label
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Reason is the sentence shown in the message in place of the list.
func (e *FetchError) Reason() string {
	switch e.Kind {
	case KindMissingCookie:
		return fmt.Sprintf("%s未配置 Cookie（NEWRANK_COOKIE），已跳过", e.Source)
	case KindMalformedCookie:
		return fmt.Sprintf("%s Cookie 格式无效（NEWRANK_COOKIE 应为 name=value; name2=value2），已跳过", e.Source)
	case KindCookieRejected:
		return fmt.Sprintf("%s Cookie 已失效或被拒绝，请更新 NEWRANK_COOKIE", e.Source)
	case KindUnrecognizedPage:
		var pe *PageError
		if errors.As(e.Err, &pe) && pe.Title != "" {
			return fmt.Sprintf("%s页面结构无法识别，未提取到文章标题（页面标题：%s）", e.Source, pe.Title)
		}
		return fmt.Sprintf("%s页面结构无法识别，未提取到文章标题", e.Source)
	case KindEmpty:
		return fmt.Sprintf("%s暂无数据", e.Source)
	case KindTimeout:
		return fmt.Sprintf("%s请求超时", e.Source)
	case KindBadResponse:
		var se *scraper.StatusError
		if errors.As(e.Err, &se) {
			return fmt.Sprintf("%s请求失败，状态码：%d", e.Source, se.StatusCode)
		}
		return fmt.Sprintf("%s返回数据格式异常", e.Source)
	case KindPanic:
		return fmt.Sprintf("%s抓取出现内部错误", e.Source)
	default:
		return fmt.Sprintf("%s网络请求失败", e.Source)
	}
}

// PageError identifies a rendered page that yielded no titles.
type PageError struct {
	URL   string
	Title string // document <title>, may be empty
}

func (e *PageError) Error() string {
	return fmt.Sprintf("no titles extracted from %s (title %q)", e.URL, e.Title)
}

func newFetchError(label string, kind ErrorKind, err error) *FetchError {
	return &FetchError{Source: label, Kind: kind, Err: err}
}

// fromHTTP maps a scraper error onto the source taxonomy.
func fromHTTP(label string, err error) *FetchError {
	var se *scraper.StatusError
	var de *scraper.DecodeError
	if errors.As(err, &se) || errors.As(err, &de) {
		return newFetchError(label, KindBadResponse, err)
	}
	var syn interface{ Timeout() bool }
	if errors.As(err, &syn) && syn.Timeout() {
		return newFetchError(label, KindTimeout, err)
	}
	return newFetchError(label, KindTransport, err)
}
