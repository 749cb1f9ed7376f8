package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil watches remote coding-agent jobs and turns them into actionable events.",
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
