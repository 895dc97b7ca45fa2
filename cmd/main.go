package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// overridden during build with ldflags
	version = "dev"
	commit  = "unknown"

	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "nutrition",
	Short:         "Food and nutrition facts HTTP API",
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default: ./.env if present)")
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
