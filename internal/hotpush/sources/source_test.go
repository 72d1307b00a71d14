package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSource struct {
	name    string
	label   string
	timeout time.Duration
	delay   time.Duration
	items   []Item
	err     error
	panics  bool
}

func (f *fakeSource) Name() string           { return f.name }
func (f *fakeSource) Label() string          { return f.label }
func (f *fakeSource) Timeout() time.Duration { return f.timeout }

func (f *fakeSource) Fetch(ctx context.Context) ([]Item, error) {
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.items, f.err
}

func makeItems(prefix string, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			Title: fmt.Sprintf("%s 第%d条，热点", prefix, i+1),
			URL:   fmt.Sprintf("https://example.com/%s/%d", prefix, i+1),
			Rank:  i + 1,
		}
	}
	return items
}

func TestRegistry_PreservesOrder(t *testing.T) {
	r := NewRegistry(quietLogger)
	r.Register(&fakeSource{name: "slow", label: "慢", delay: 30 * time.Millisecond, items: makeItems("slow", 3)})
	r.Register(&fakeSource{name: "fast", label: "快", items: makeItems("fast", 2)})

	results := r.FetchAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Source != "slow" || results[1].Source != "fast" {
		t.Errorf("order = [%s %s], want [slow fast]", results[0].Source, results[1].Source)
	}
	for _, res := range results {
		if !res.OK() {
			t.Errorf("%s: unexpected error %v", res.Source, res.Err)
		}
	}
}

func TestRegistry_CapsAtMaxItems(t *testing.T) {
	r := NewRegistry(quietLogger)
	r.Register(&fakeSource{name: "many", label: "多", items: makeItems("many", 25)})

	res := r.FetchAll(context.Background())[0]
	if len(res.Items) != MaxItems {
		t.Fatalf("expected %d items, got %d", MaxItems, len(res.Items))
	}
	if res.Items[0].Rank != 1 || res.Items[9].Rank != 10 {
		t.Errorf("unexpected ranks: %d..%d", res.Items[0].Rank, res.Items[9].Rank)
	}
}

func TestRegistry_AbsorbsFailures(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
		kind ErrorKind
	}{
		{"plain error", &fakeSource{err: errors.New("connection refused")}, KindTransport},
		{"typed error", &fakeSource{err: &FetchError{Kind: KindMissingCookie}}, KindMissingCookie},
		{"panic", &fakeSource{panics: true}, KindPanic},
		{"empty list", &fakeSource{items: nil}, KindEmpty},
		{"only blank items", &fakeSource{items: []Item{{Title: "", URL: "https://x"}}}, KindEmpty},
		{"timeout", &fakeSource{timeout: 10 * time.Millisecond, delay: time.Second}, KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.src.name, tt.src.label = "src", "测试源"
			r := NewRegistry(quietLogger)
			r.Register(tt.src)

			res := r.FetchAll(context.Background())[0]
			if res.OK() {
				t.Fatal("expected failure result")
			}
			if len(res.Items) != 0 {
				t.Errorf("failure result carries %d items", len(res.Items))
			}
			var fe *FetchError
			if !errors.As(res.Err, &fe) {
				t.Fatalf("expected *FetchError, got %T", res.Err)
			}
			if fe.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", fe.Kind, tt.kind)
			}
			if fe.Source != "测试源" {
				t.Errorf("source label = %q", fe.Source)
			}
			if res.Reason() == "" {
				t.Error("expected a readable reason")
			}
		})
	}
}

func TestRegistry_TopLevelDeadlineKeepsCompleted(t *testing.T) {
	r := NewRegistry(quietLogger)
	r.Register(&fakeSource{name: "fast", label: "快", items: makeItems("fast", 2)})
	r.Register(&fakeSource{name: "hung", label: "卡", delay: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	results := r.FetchAll(ctx)
	if time.Since(start) > 2*time.Second {
		t.Fatal("deadline did not abort the hung source")
	}
	if !results[0].OK() {
		t.Errorf("fast source should have succeeded: %v", results[0].Err)
	}
	if results[1].OK() {
		t.Error("hung source should have failed")
	}
}

func TestReasonsAreDistinct(t *testing.T) {
	kinds := []ErrorKind{KindMissingCookie, KindMalformedCookie, KindCookieRejected, KindUnrecognizedPage}
	seen := map[string]bool{}
	for _, k := range kinds {
		reason := (&FetchError{Source: "新榜热文", Kind: k}).Reason()
		if seen[reason] {
			t.Errorf("duplicate reason for %s: %s", k, reason)
		}
		seen[reason] = true
	}
}
