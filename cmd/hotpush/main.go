// hotpush collects the Weibo, Zhihu and Newrank trending lists and pushes a
// daily digest to a Feishu group bot.
//
// Usage:
//
//	hotpush run [--dry-run]     # 抓取并推送一次
//	hotpush serve [--interval]  # 常驻，按间隔推送
//	hotpush sources             # 查看数据源
//	hotpush version             # 显示版本
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	hotcfg "github.com/RobinCoderZhao/hotpush/internal/hotpush/config"
	"github.com/RobinCoderZhao/hotpush/internal/hotpush/pipeline"
	"github.com/RobinCoderZhao/hotpush/internal/hotpush/publisher"
	"github.com/RobinCoderZhao/hotpush/internal/hotpush/scheduler"
	"github.com/RobinCoderZhao/hotpush/internal/hotpush/sources"
	"github.com/RobinCoderZhao/hotpush/pkg/notify"
)

var version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "hotpush",
		Short:         "Daily trending-topic digest for Feishu",
		Long:          "hotpush 抓取微博热搜、知乎热榜和新榜热文，汇总后推送到飞书群机器人。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", hotcfg.DefaultPath, "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "日志级别 (debug|info|warn|error)")

	rootCmd.AddCommand(runCmd(&flags))
	rootCmd.AddCommand(serveCmd(&flags))
	rootCmd.AddCommand(sourcesCmd(&flags))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func runCmd(flags *globalFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "抓取所有数据源并推送一次",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), flags, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只打印消息，不推送")
	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "常驻运行，按间隔推送",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "推送间隔（默认取配置 interval，24h）")
	return cmd
}

func sourcesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "列出数据源及其状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			for _, name := range hotcfg.KnownSources {
				state := "✅ 启用"
				if !cfg.SourceEnabled(name) {
					state = "⏸️  停用"
				}
				extra := ""
				if name == "newrank" {
					if cfg.Newrank.Cookie == "" {
						extra = "（未配置 NEWRANK_COOKIE）"
					} else {
						extra = "（已配置 Cookie）"
					}
				}
				fmt.Printf("  %-8s %s%s\n", name, state, extra)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hotpush %s\n", version)
		},
	}
}

// loadConfig reads the configuration and installs the slog handler it asks for.
func loadConfig(flags *globalFlags) (hotcfg.Config, error) {
	cfg, err := hotcfg.Load(flags.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	level, err := hotcfg.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, err
	}
	slog.SetDefault(newLogger(cfg.Log.Format, level))
	return cfg, nil
}

func newLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func buildPipeline(cfg hotcfg.Config, dryRun bool) (*pipeline.Pipeline, error) {
	logger := slog.Default()

	client := &http.Client{Timeout: cfg.Sources.Timeout}
	registry := sources.NewRegistry(logger)
	for _, name := range cfg.Sources.Enabled {
		switch name {
		case "weibo":
			registry.Register(sources.NewWeiboSource(client, cfg.Sources.Timeout))
		case "zhihu":
			registry.Register(sources.NewZhihuSource(client, cfg.Sources.Timeout))
		case "newrank":
			registry.Register(sources.NewNewrankSource(cfg.Newrank, sources.NewChromeRenderer(cfg.Newrank, logger), logger))
		}
	}

	notifier, err := notify.New(cfg.Webhook)
	if err != nil {
		return nil, fmt.Errorf("create notifier: %w", err)
	}

	formatter := publisher.NewFormatter(cfg.Title, publisher.LoadLocation(cfg.Timezone))
	pub := publisher.NewPublisher(formatter, notifier, cfg.Webhook.Format)

	return pipeline.New(registry, pub, pipeline.Options{
		RunTimeout:  cfg.RunTimeout,
		SendTimeout: cfg.Webhook.Timeout,
		DryRun:      dryRun,
		Logger:      logger,
	}), nil
}

func runOnce(ctx context.Context, flags *globalFlags, dryRun bool) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.SourceEnabled("newrank") && cfg.Newrank.Cookie == "" {
		fmt.Println("⚠️  未配置 NEWRANK_COOKIE，新榜热文将被跳过")
	}

	p, err := buildPipeline(cfg, dryRun)
	if err != nil {
		return err
	}

	report, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("热点推送失败: %w", err)
	}
	if dryRun {
		fmt.Println(report.Message.Body)
		return nil
	}
	fmt.Printf("✅ 热点推送完成 (%d 成功, %d 失败, %s)\n", report.Succeeded, report.Failed, report.Duration.Round(time.Millisecond))
	return nil
}

func runServe(ctx context.Context, flags *globalFlags, interval time.Duration) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if interval > 0 {
		cfg.Interval = interval
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	p, err := buildPipeline(cfg, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(slog.Default())
	sched.Add(scheduler.Job{
		Name: "hotpush",
		Fn: func(ctx context.Context) error {
			_, err := p.Run(ctx)
			return err
		},
	})
	sched.Start(ctx, cfg.Interval)
	return nil
}
