package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/pkg/config"
	vigillog "github.com/vigil-run/vigil/pkg/log"
	"github.com/vigil-run/vigil/pkg/remote"
	"github.com/vigil-run/vigil/pkg/serve"
)

var (
	serveConfigPath string
	serveJobsPath   string
	serveAPIBase    string
	serveLogLevel   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the job API as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout. Each line in is a
JSON-RPC 2.0 request, each line out is a response; logs go to stderr so
the protocol channel stays clean.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(serveConfigPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("jobs") {
			cfg.RegistryPath = serveJobsPath
		}
		if cmd.Flags().Changed("api-base") {
			cfg.APIBase = serveAPIBase
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = serveLogLevel
		}

		if err := vigillog.Init(vigillog.Config{Level: vigillog.Level(cfg.LogLevel), Format: "console"}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer vigillog.Sync()

		client := remote.NewClient(config.Token(), remote.WithBaseURL(cfg.APIBase))
		srv, err := serve.New(serve.Config{
			Remote:       client,
			RegistryPath: cfg.RegistryPath,
			Version:      Version,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		vigillog.Info("mcp server started", "api_base", cfg.APIBase, "registry", cfg.RegistryPath)
		if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config file (default: vigil.yaml if present)")
	serveCmd.Flags().StringVar(&serveJobsPath, "jobs", "", "Registry file vigil_register_job appends to")
	serveCmd.Flags().StringVar(&serveAPIBase, "api-base", "", "Remote API base URL")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.AddCommand(serveCmd)
}
