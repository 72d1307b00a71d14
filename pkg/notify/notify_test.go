package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFeishuNotifier_TextEnvelope(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"code":0}`))
	}))
	defer ts.Close()

	n := NewFeishuNotifier(ts.URL, ts.Client())
	if err := n.Send(context.Background(), Message{Body: "1. 标题\n   https://example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["msg_type"] != "text" {
		t.Errorf("msg_type = %v, want text", got["msg_type"])
	}
	content, ok := got["content"].(map[string]any)
	if !ok {
		t.Fatalf("content missing: %v", got)
	}
	if content["text"] != "1. 标题\n   https://example.com" {
		t.Errorf("text = %q", content["text"])
	}
}

func TestFeishuNotifier_PostEnvelope(t *testing.T) {
	var got struct {
		MsgType string `json:"msg_type"`
		Content struct {
			Post map[string]Post `json:"post"`
		} `json:"content"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer ts.Close()

	post := &Post{
		Title: "🌐 每日热点速递",
		Content: [][]PostElement{
			{{Tag: "text", Text: "1. "}, {Tag: "a", Text: "标题", Href: "https://example.com"}},
		},
	}
	n := NewFeishuNotifier(ts.URL, nil)
	if err := n.Send(context.Background(), Message{Format: "post", Body: "ignored", Post: post}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MsgType != "post" {
		t.Fatalf("msg_type = %q, want post", got.MsgType)
	}
	zh, ok := got.Content.Post["zh_cn"]
	if !ok {
		t.Fatal("expected zh_cn post body")
	}
	if zh.Content[0][1].Href != "https://example.com" {
		t.Errorf("unexpected link element: %+v", zh.Content[0][1])
	}
}

func TestFeishuNotifier_StatusDecidesSuccess(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusBadRequest, http.StatusInternalServerError} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			// Body content never matters.
			_, _ = w.Write([]byte(`{"code":19021,"msg":"sign match fail"}`))
		}))

		err := NewFeishuNotifier(ts.URL, ts.Client()).Send(context.Background(), Message{Body: "x"})
		ts.Close()

		if status == http.StatusOK {
			if err != nil {
				t.Errorf("status 200: unexpected error %v", err)
			}
			continue
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != status {
			t.Errorf("status %d: expected *StatusError, got %v", status, err)
		}
	}
}

func TestFeishuNotifier_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	if err := NewFeishuNotifier(url, nil).Send(context.Background(), Message{Body: "x"}); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestWebhookNotifier_SendsHeadersAndPayload(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("X-Token") != "secret" {
			t.Errorf("missing custom header")
		}
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["body"] != "hello" || payload["title"] != "t" {
			t.Errorf("unexpected payload: %v", payload)
		}
	}))
	defer ts.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: ts.URL, Headers: map[string]string{"X-Token": "secret"}}, nil)
	if err := n.Send(context.Background(), Message{Title: "t", Body: "hello", Format: "text"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", calls.Load())
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without url")
	}
	if _, err := New(Config{URL: "https://x", Kind: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}

	n, err := New(Config{URL: "https://x"})
	if err != nil {
		t.Fatal(err)
	}
	if n.Channel() != ChannelFeishu {
		t.Errorf("default channel = %s, want feishu", n.Channel())
	}

	n, err = New(Config{URL: "https://x", Kind: ChannelWebhook})
	if err != nil {
		t.Fatal(err)
	}
	if n.Channel() != ChannelWebhook {
		t.Errorf("channel = %s, want webhook", n.Channel())
	}

	n, err = New(Config{URL: "https://x", Kind: "generic"})
	if err != nil {
		t.Fatal(err)
	}
	if n.Channel() != ChannelWebhook {
		t.Errorf("generic kind channel = %s, want webhook", n.Channel())
	}
}
