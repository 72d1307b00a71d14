package sources

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	minTitleRunes = 8
	maxTitleRunes = 80
	dedupPrefix   = 12
)

// TitleContext is the text surrounding a candidate line.
type TitleContext struct {
	Prev string
	Next string
}

// sentencePunct are marks that show up in real headlines but rarely in chrome.
const sentencePunct = "，。！？：；、…—“”‘’《》「」【】,!?:;"

// excludedPrefixes mark bylines, counters and navigation labels.
var excludedPrefixes = []string{
	"作者", "来源", "发布于", "发布时间", "更新时间", "公众号", "微信号", "原创",
	"阅读", "在看", "点赞", "粉丝", "关注", "评论", "转发", "分享", "收藏",
	"首页", "榜单", "排行", "登录", "注册", "查看更多", "加载更多", "展开",
	"新榜指数", "头条", "广告", "推广", "Copyright", "©",
}

// excludedKeywords disqualify a line wherever they appear.
var excludedKeywords = []string{
	"粉丝数", "阅读数", "阅读量", "点赞数", "在看数", "新榜指数", "扫码", "下载APP",
	"用户协议", "隐私政策", "ICP备", "版权所有", "联系我们", "商务合作",
}

var (
	// statSuffix matches trailing counters like "10w+", "10k+", "3.2万", "999+".
	statSuffix = regexp.MustCompile(`(?i)\d+(\.\d+)?\s*(w\+?|k\+?|万\+?|亿\+?|\+)$`)
	// bylineRe matches author/account metadata lines.
	bylineRe = regexp.MustCompile(`^(作者|来源|公众号|发布者|出品|编辑|撰文|By\s|@)`)
)

// looksLikeTitle reports whether candidate is plausibly an article headline.
// A title has 8–80 runes, at least one Han ideograph and one sentence-level
// punctuation mark, matches no excluded prefix/keyword or trailing counter, and
// does not sit next to a byline.
func looksLikeTitle(candidate string, ctx TitleContext) bool {
	s := strings.TrimSpace(candidate)
	n := utf8.RuneCountInString(s)
	if n < minTitleRunes || n > maxTitleRunes {
		return false
	}
	if !hasHan(s) {
		return false
	}
	if !strings.ContainsAny(s, sentencePunct) {
		return false
	}
	if isExcluded(s) {
		return false
	}
	if isByline(ctx.Prev) || isByline(ctx.Next) {
		return false
	}
	return true
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func isExcluded(s string) bool {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	for _, k := range excludedKeywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return statSuffix.MatchString(s)
}

func isByline(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && bylineRe.MatchString(s)
}

// normalizeTitle folds width variants and collapses whitespace.
func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// dedupKeys returns the exact key and the initial-substring key for s.
func dedupKeys(s string) (exact, prefix string) {
	exact = normalizeTitle(s)
	runes := []rune(exact)
	if len(runes) > dedupPrefix {
		runes = runes[:dedupPrefix]
	}
	return exact, string(runes)
}
