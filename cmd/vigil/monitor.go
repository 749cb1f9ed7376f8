package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/pkg/config"
	"github.com/vigil-run/vigil/pkg/events"
	vigillog "github.com/vigil-run/vigil/pkg/log"
	"github.com/vigil-run/vigil/pkg/monitor"
	"github.com/vigil-run/vigil/pkg/remote"
	"github.com/vigil-run/vigil/pkg/state"
)

var (
	monitorConfigPath   string
	monitorJobsPath     string
	monitorEventsPath   string
	monitorStatePath    string
	monitorPollSeconds  int
	monitorStuckMinutes int
	monitorAPIBase      string
	monitorLogLevel     string
	monitorOnce         bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll registered jobs and publish actionable events",
	Long: `Poll every job in the registry against the remote API, classify status
transitions, and append question/completed/error/stuck events to the
append-only event sink. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(monitorConfigPath)
		if err != nil {
			return err
		}
		applyMonitorFlags(cmd, &cfg)

		if err := vigillog.Init(vigillog.Config{Level: vigillog.Level(cfg.LogLevel), Format: "console"}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer vigillog.Sync()

		store, err := state.Load(cfg.StatePath)
		if err != nil {
			return err
		}
		sink, err := events.OpenSink(cfg.EventsPath)
		if err != nil {
			return err
		}
		defer sink.Close()

		client := remote.NewClient(config.Token(), remote.WithBaseURL(cfg.APIBase))
		mon, err := monitor.New(monitor.Config{
			RegistryPath:   cfg.RegistryPath,
			Remote:         client,
			Store:          store,
			Sink:           sink,
			PollInterval:   cfg.PollInterval(),
			StuckThreshold: cfg.StuckThreshold(),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if monitorOnce {
			return mon.Cycle(ctx)
		}

		vigillog.Info("monitor started",
			"registry", cfg.RegistryPath,
			"events", cfg.EventsPath,
			"interval", cfg.PollInterval().String(),
		)
		if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func applyMonitorFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("jobs") {
		cfg.RegistryPath = monitorJobsPath
	}
	if cmd.Flags().Changed("events") {
		cfg.EventsPath = monitorEventsPath
	}
	if cmd.Flags().Changed("state") {
		cfg.StatePath = monitorStatePath
	}
	if cmd.Flags().Changed("interval") {
		cfg.PollSeconds = monitorPollSeconds
	}
	if cmd.Flags().Changed("stuck-after") {
		cfg.StuckMinutes = monitorStuckMinutes
	}
	if cmd.Flags().Changed("api-base") {
		cfg.APIBase = monitorAPIBase
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = monitorLogLevel
	}
}

func init() {
	monitorCmd.Flags().StringVar(&monitorConfigPath, "config", "", "Path to config file (default: vigil.yaml if present)")
	monitorCmd.Flags().StringVar(&monitorJobsPath, "jobs", "", "Path to the jobs registry file")
	monitorCmd.Flags().StringVar(&monitorEventsPath, "events", "", "Path to the event sink file")
	monitorCmd.Flags().StringVar(&monitorStatePath, "state", "", "Path to the monitor state file")
	monitorCmd.Flags().IntVar(&monitorPollSeconds, "interval", 0, "Polling interval in seconds")
	monitorCmd.Flags().IntVar(&monitorStuckMinutes, "stuck-after", 0, "Minutes without activity before a stuck event")
	monitorCmd.Flags().StringVar(&monitorAPIBase, "api-base", "", "Remote API base URL")
	monitorCmd.Flags().StringVar(&monitorLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "Run a single polling cycle and exit")
	rootCmd.AddCommand(monitorCmd)
}
