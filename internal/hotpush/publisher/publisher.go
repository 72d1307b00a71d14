// Package publisher formats the aggregated trending lists and hands them to a notifier.
package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RobinCoderZhao/hotpush/internal/hotpush/sources"
	"github.com/RobinCoderZhao/hotpush/pkg/notify"
)

const (
	// DefaultTitle is the header line of every message.
	DefaultTitle = "🌐 每日热点速递"
	// TimeLayout is the format of the trailing timestamp line.
	TimeLayout = "2006-01-02 15:04:05"
)

// LoadLocation returns the named zone, or a fixed UTC+8 zone when it cannot be loaded.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = "Asia/Shanghai"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// Formatter renders source results into a chat message. It is a pure function
// of its input and the supplied clock reading.
type Formatter struct {
	title string
	loc   *time.Location
}

// NewFormatter creates a formatter. An empty title omits the header line.
func NewFormatter(title string, loc *time.Location) *Formatter {
	if loc == nil {
		loc = LoadLocation("")
	}
	return &Formatter{title: title, loc: loc}
}

func sectionHeader(r sources.Result) string {
	if r.OK() {
		return fmt.Sprintf("【%s TOP %d】", r.Label, len(r.Items))
	}
	return fmt.Sprintf("【%s】", r.Label)
}

func (f *Formatter) timestamp(now time.Time) string {
	return "更新时间：" + now.In(f.loc).Format(TimeLayout)
}

// Render produces the plain-text message body. Every section is emitted in the
// order given; failed sources render as a single notice line.
func (f *Formatter) Render(results []sources.Result, now time.Time) string {
	var sb strings.Builder

	if f.title != "" {
		sb.WriteString(f.title)
		sb.WriteString("\n\n")
	}

	for _, r := range results {
		sb.WriteString(sectionHeader(r))
		sb.WriteString("\n")
		if !r.OK() {
			fmt.Fprintf(&sb, "⚠️ %s\n", r.Reason())
		}
		for i, item := range r.Items {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, item.Title, item.URL)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(f.timestamp(now))
	return sb.String()
}

// RenderPost produces the Feishu rich-text form of the same message.
func (f *Formatter) RenderPost(results []sources.Result, now time.Time) *notify.Post {
	post := &notify.Post{Title: f.title}

	for i, r := range results {
		if i > 0 {
			post.Content = append(post.Content, []notify.PostElement{})
		}
		post.Content = append(post.Content, []notify.PostElement{
			{Tag: "text", Text: sectionHeader(r), Style: []string{"bold"}},
		})
		if !r.OK() {
			post.Content = append(post.Content, []notify.PostElement{
				{Tag: "text", Text: "⚠️ " + r.Reason()},
			})
			continue
		}
		for j, item := range r.Items {
			post.Content = append(post.Content, []notify.PostElement{
				{Tag: "text", Text: fmt.Sprintf("%d. ", j+1)},
				{Tag: "a", Text: item.Title, Href: item.URL},
			})
		}
	}

	post.Content = append(post.Content, []notify.PostElement{}, []notify.PostElement{
		{Tag: "text", Text: f.timestamp(now)},
	})
	return post
}

// Message builds the notify.Message for the given format ("text" or "post").
func (f *Formatter) Message(results []sources.Result, now time.Time, format string) notify.Message {
	msg := notify.Message{
		Title:  f.title,
		Body:   f.Render(results, now),
		Format: "text",
	}
	if format == "post" {
		msg.Format = "post"
		msg.Post = f.RenderPost(results, now)
	}
	return msg
}

// Publisher formats results and sends them through one notifier.
type Publisher struct {
	formatter *Formatter
	notifier  notify.Notifier
	format    string
}

// NewPublisher creates a new publisher with the given formatter and notifier.
func NewPublisher(formatter *Formatter, notifier notify.Notifier, format string) *Publisher {
	return &Publisher{formatter: formatter, notifier: notifier, format: format}
}

// Compose renders the message without sending it.
func (p *Publisher) Compose(results []sources.Result, now time.Time) notify.Message {
	return p.formatter.Message(results, now, p.format)
}

// Send delivers an already composed message exactly once.
func (p *Publisher) Send(ctx context.Context, msg notify.Message) error {
	if p.notifier == nil {
		return fmt.Errorf("publisher: no notifier configured")
	}
	return p.notifier.Send(ctx, msg)
}
