package notify

import (
	"context"
	"net/http"
	"time"
)

// FeishuNotifier posts to a Feishu (Lark) custom bot webhook.
type FeishuNotifier struct {
	url  string
	http *http.Client
}

// NewFeishuNotifier creates a Feishu notifier. A nil client gets a 10s timeout.
func NewFeishuNotifier(url string, client *http.Client) *FeishuNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FeishuNotifier{url: url, http: client}
}

func (f *FeishuNotifier) Channel() Channel { return ChannelFeishu }

type feishuText struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

type feishuPost struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Post map[string]Post `json:"post"`
	} `json:"content"`
}

// Send delivers msg once. A message carrying a Post with Format "post" goes out as
// rich text; everything else is sent as {"msg_type":"text","content":{"text":...}}.
func (f *FeishuNotifier) Send(ctx context.Context, msg Message) error {
	headers := map[string]string{"Content-Type": "application/json; charset=utf-8"}

	if msg.Format == "post" && msg.Post != nil {
		var p feishuPost
		p.MsgType = "post"
		p.Content.Post = map[string]Post{"zh_cn": *msg.Post}
		return postJSON(ctx, f.http, f.url, ChannelFeishu, headers, p)
	}

	var p feishuText
	p.MsgType = "text"
	p.Content.Text = msg.Body
	return postJSON(ctx, f.http, f.url, ChannelFeishu, headers, p)
}
