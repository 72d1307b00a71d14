// Package sources defines the trending-list source interface, the three adapters
// (Weibo, Zhihu, Newrank) and the registry that fans out to them.
package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxItems is the most entries any source list carries.
const MaxItems = 10

// Item is one ranked entry of a trending list.
type Item struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Rank  int    `json:"rank,omitempty"` // 1-based source position, 0 if unknown
}

// Source is the interface that all trending-list sources must implement.
type Source interface {
	// Name returns the stable identifier of the source, e.g. "weibo".
	Name() string

	// Label returns the display name used as the section header.
	Label() string

	// Timeout bounds a single Fetch.
	Timeout() time.Duration

	// Fetch retrieves the current list. Errors are absorbed by the Registry.
	Fetch(ctx context.Context) ([]Item, error)
}

// Result is the outcome of one source fetch: either items or an error.
type Result struct {
	Source   string        `json:"source"`
	Label    string        `json:"label"`
	Items    []Item        `json:"items,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the fetch produced a list.
func (r Result) OK() bool { return r.Err == nil }

// Reason renders the failure as a readable sentence, or "" on success.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(r.Err, &fe) {
		return fe.Reason()
	}
	return fmt.Sprintf("%s获取失败：%v", r.Label, r.Err)
}

// Registry holds all registered sources in display order.
type Registry struct {
	sources []Source
	logger  *slog.Logger
}

// NewRegistry creates a new source registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	r.sources = append(r.sources, s)
}

// Sources returns the registered sources in display order.
func (r *Registry) Sources() []Source {
	return append([]Source(nil), r.sources...)
}

// FetchAll fetches every source concurrently, each under its own timeout.
// It never fails: per-source errors, timeouts and panics become Result.Err.
// Results come back in registration order.
func (r *Registry) FetchAll(ctx context.Context) []Result {
	results := make([]Result, len(r.sources))

	var g errgroup.Group
	for i, s := range r.sources {
		g.Go(func() error {
			results[i] = r.fetchOne(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Registry) fetchOne(ctx context.Context, s Source) (res Result) {
	start := time.Now()
	res = Result{Source: s.Name(), Label: s.Label()}

	defer func() {
		if p := recover(); p != nil {
			res.Items = nil
			res.Err = &FetchError{Source: s.Label(), Kind: KindPanic, Err: fmt.Errorf("%v", p)}
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			r.logger.Warn("source failed", "source", res.Source, "duration", res.Duration, "error", res.Err)
		} else {
			r.logger.Info("source fetched", "source", res.Source, "items", len(res.Items), "duration", res.Duration)
		}
	}()

	fetchCtx := ctx
	if d := s.Timeout(); d > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	items, err := s.Fetch(fetchCtx)
	if err != nil {
		res.Err = classify(fetchCtx, s.Label(), err)
		return res
	}

	items = clean(items)
	if len(items) == 0 {
		res.Err = &FetchError{Source: s.Label(), Kind: KindEmpty}
		return res
	}
	res.Items = items
	return res
}

// classify wraps err as a *FetchError, marking deadline expiry as a timeout.
func classify(ctx context.Context, label string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Source == "" {
			fe.Source = label
		}
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &FetchError{Source: label, Kind: KindTimeout, Err: err}
	}
	return &FetchError{Source: label, Kind: KindTransport, Err: err}
}

// clean drops items without a title or URL and caps the list at MaxItems.
func clean(items []Item) []Item {
	out := make([]Item, 0, min(len(items), MaxItems))
	for _, it := range items {
		if it.Title == "" || it.URL == "" {
			continue
		}
		out = append(out, it)
		if len(out) == MaxItems {
			break
		}
	}
	return out
}
