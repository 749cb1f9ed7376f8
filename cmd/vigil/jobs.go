package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/pkg/config"
	"github.com/vigil-run/vigil/pkg/registry"
)

var (
	jobsConfigPath string
	jobsPath       string
	jobsMetadata   []string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage the local job registry",
}

var jobsRegisterCmd = &cobra.Command{
	Use:   "register <job-id>",
	Short: "Register a job ID for monitoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(jobsConfigPath)
		if err != nil {
			return err
		}
		path := cfg.RegistryPath
		if jobsPath != "" {
			path = jobsPath
		}

		metadata, err := parseMetadata(jobsMetadata)
		if err != nil {
			return err
		}

		jobID := strings.TrimSpace(args[0])
		if err := registry.Append(path, registry.Job{JobID: jobID, Metadata: metadata}); err != nil {
			return err
		}
		fmt.Printf("registered %s in %s\n", jobID, path)
		return nil
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered job IDs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(jobsConfigPath)
		if err != nil {
			return err
		}
		path := cfg.RegistryPath
		if jobsPath != "" {
			path = jobsPath
		}

		jobs, err := registry.Load(path)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			fmt.Println(job.JobID)
		}
		return nil
	},
}

func parseMetadata(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected key=value", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

func init() {
	jobsCmd.PersistentFlags().StringVar(&jobsConfigPath, "config", "", "Path to config file (default: vigil.yaml if present)")
	jobsCmd.PersistentFlags().StringVar(&jobsPath, "jobs", "", "Path to the jobs registry file")
	jobsRegisterCmd.Flags().StringSliceVar(&jobsMetadata, "meta", nil, "Metadata to store with the job (key=value, repeatable)")
	jobsCmd.AddCommand(jobsRegisterCmd)
	jobsCmd.AddCommand(jobsListCmd)
	rootCmd.AddCommand(jobsCmd)
}
