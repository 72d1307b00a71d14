// Package config holds the hotpush configuration: defaults, file and
// environment loading, and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/RobinCoderZhao/hotpush/internal/hotpush/sources"
	"github.com/RobinCoderZhao/hotpush/pkg/config"
	"github.com/RobinCoderZhao/hotpush/pkg/notify"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "hotpush.yaml"

// Known source names, in display order.
var KnownSources = []string{"weibo", "zhihu", "newrank"}

var (
	ErrMissingWebhook = errors.New("webhook url is required (set FEISHU_WEBHOOK_URL)")
	ErrInvalidWebhook = errors.New("webhook url must be http or https")
)

// SourcesConfig selects the adapters and bounds the API fetches.
type SourcesConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"HOTPUSH_SOURCE_TIMEOUT"`
	Enabled []string      `yaml:"enabled" env:"HOTPUSH_SOURCES"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"HOTPUSH_LOG_LEVEL"`
	Format string `yaml:"format" env:"HOTPUSH_LOG_FORMAT"`
}

// Config is the complete hotpush configuration.
type Config struct {
	Webhook    notify.Config         `yaml:"webhook"`
	Newrank    sources.NewrankConfig `yaml:"newrank"`
	Sources    SourcesConfig         `yaml:"sources"`
	RunTimeout time.Duration         `yaml:"run_timeout" env:"HOTPUSH_RUN_TIMEOUT"`
	Interval   time.Duration         `yaml:"interval" env:"HOTPUSH_INTERVAL"`
	Timezone   string                `yaml:"timezone" env:"HOTPUSH_TIMEZONE"`
	Title      string                `yaml:"title"`
	Log        LogConfig             `yaml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Webhook: notify.Config{
			Kind:    notify.ChannelFeishu,
			Format:  "text",
			Timeout: 10 * time.Second,
		},
		Newrank: sources.NewrankConfig{
			URL:     "https://www.newrank.cn/hotInfo?platform=GZH",
			Settle:  5 * time.Second,
			Timeout: 60 * time.Second,
		},
		Sources: SourcesConfig{
			Timeout: 10 * time.Second,
			Enabled: append([]string(nil), KnownSources...),
		},
		RunTimeout: 2 * time.Minute,
		Interval:   24 * time.Hour,
		Timezone:   "Asia/Shanghai",
		Title:      "🌐 每日热点速递",
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads .env (if present), then the YAML file at path (if present) over
// the defaults, then environment overrides. Callers run Validate before use.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if err := config.LoadOrDefault(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.Sources.Enabled = normalizeNames(cfg.Sources.Enabled)
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Webhook.URL) == "" {
		return ErrMissingWebhook
	}
	u, err := url.Parse(c.Webhook.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidWebhook, c.Webhook.URL)
	}

	switch c.Webhook.Kind {
	case "", notify.ChannelFeishu, notify.ChannelWebhook, "generic":
	default:
		return fmt.Errorf("unknown webhook kind %q", c.Webhook.Kind)
	}
	switch c.Webhook.Format {
	case "", "text", "post":
	default:
		return fmt.Errorf("unknown message format %q (want text or post)", c.Webhook.Format)
	}

	if len(c.Sources.Enabled) == 0 {
		return errors.New("no sources enabled")
	}
	for _, name := range c.Sources.Enabled {
		if !isKnownSource(name) {
			return fmt.Errorf("unknown source %q (known: %s)", name, strings.Join(KnownSources, ", "))
		}
	}

	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %s", c.RunTimeout)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// SourceEnabled reports whether the named source is selected.
func (c Config) SourceEnabled(name string) bool {
	for _, n := range c.Sources.Enabled {
		if n == name {
			return true
		}
	}
	return false
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func isKnownSource(name string) bool {
	for _, k := range KnownSources {
		if k == name {
			return true
		}
	}
	return false
}

func normalizeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
