package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/pkg/config"
	vigillog "github.com/vigil-run/vigil/pkg/log"
	"github.com/vigil-run/vigil/pkg/watcher"
)

var (
	watchConfigPath  string
	watchEventsPath  string
	watchStatePath   string
	watchHandler     string
	watchPollSeconds int
	watchLogLevel    string
	watchOnce        bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail the event sink and run a handler per event",
	Long: `Follow the event sink from the last persisted byte offset and run the
handler command once per new record, with the event JSON in the ` + watcher.EventEnv + `
environment variable. Each record is delivered exactly once; handler
failures are logged and skipped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(watchConfigPath)
		if err != nil {
			return err
		}
		applyWatchFlags(cmd, &cfg)

		if cfg.HandlerCommand == "" {
			return errors.New("no handler command: set handler_command in the config or pass --handler")
		}

		if err := vigillog.Init(vigillog.Config{Level: vigillog.Level(cfg.LogLevel), Format: "console"}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer vigillog.Sync()

		invoker, err := watcher.NewExecInvoker(cfg.HandlerCommand)
		if err != nil {
			return err
		}

		interval := time.Duration(watchPollSeconds) * time.Second
		if !cmd.Flags().Changed("interval") {
			interval = 0 // let the tailer pick its default
		}
		tailer, err := watcher.New(watcher.Config{
			SinkPath:     cfg.EventsPath,
			StatePath:    cfg.WatcherStatePath,
			Invoker:      invoker,
			PollInterval: interval,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if watchOnce {
			return tailer.Cycle(ctx)
		}

		if err := tailer.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func applyWatchFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("events") {
		cfg.EventsPath = watchEventsPath
	}
	if cmd.Flags().Changed("state") {
		cfg.WatcherStatePath = watchStatePath
	}
	if cmd.Flags().Changed("handler") {
		cfg.HandlerCommand = watchHandler
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = watchLogLevel
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchConfigPath, "config", "", "Path to config file (default: vigil.yaml if present)")
	watchCmd.Flags().StringVar(&watchEventsPath, "events", "", "Path to the event sink file")
	watchCmd.Flags().StringVar(&watchStatePath, "state", "", "Path to the watcher offset file")
	watchCmd.Flags().StringVar(&watchHandler, "handler", "", "Shell command to run per event")
	watchCmd.Flags().IntVar(&watchPollSeconds, "interval", 2, "Sink polling interval in seconds")
	watchCmd.Flags().StringVar(&watchLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Process the sink once and exit")
	rootCmd.AddCommand(watchCmd)
}
