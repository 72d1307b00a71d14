// Package pipeline runs one fetch, render and deliver cycle.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RobinCoderZhao/hotpush/internal/hotpush/publisher"
	"github.com/RobinCoderZhao/hotpush/internal/hotpush/sources"
	"github.com/RobinCoderZhao/hotpush/pkg/notify"
)

const (
	defaultRunTimeout  = 2 * time.Minute
	defaultSendTimeout = 15 * time.Second
)

// Report summarises one run.
type Report struct {
	RunID     string
	Results   []sources.Result
	Message   notify.Message
	Sent      bool
	Duration  time.Duration
	Succeeded int
	Failed    int
}

// Options configures a Pipeline. Zero values get defaults.
type Options struct {
	RunTimeout  time.Duration
	SendTimeout time.Duration
	DryRun      bool
	Logger      *slog.Logger
	Now         func() time.Time
}

// Pipeline wires the registry, the publisher and the clock together.
type Pipeline struct {
	registry  *sources.Registry
	publisher *publisher.Publisher
	opts      Options
}

// New creates a pipeline.
func New(registry *sources.Registry, pub *publisher.Publisher, opts Options) *Pipeline {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{registry: registry, publisher: pub, opts: opts}
}

// Run fetches every source, renders one message and sends it once.
// Source failures are part of the message; only a failed delivery is an error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	logger := p.opts.Logger.With("run_id", report.RunID)
	logger.Info("run started", "sources", len(p.registry.Sources()))

	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.RunTimeout)
	report.Results = p.registry.FetchAll(fetchCtx)
	cancel()

	for _, r := range report.Results {
		if r.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	report.Message = p.publisher.Compose(report.Results, p.opts.Now())

	if p.opts.DryRun {
		report.Duration = time.Since(start)
		logger.Info("dry run, message not sent", "succeeded", report.Succeeded, "failed", report.Failed)
		return report, nil
	}

	// Delivery is not bound by the fetch deadline, only by its own timeout.
	sendCtx, cancelSend := context.WithTimeout(context.WithoutCancel(ctx), p.opts.SendTimeout)
	defer cancelSend()

	err := p.publisher.Send(sendCtx, report.Message)
	report.Duration = time.Since(start)
	if err != nil {
		logger.Error("delivery failed", "error", err, "duration", report.Duration)
		return report, fmt.Errorf("send message: %w", err)
	}
	report.Sent = true
	logger.Info("run completed",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	return report, nil
}
