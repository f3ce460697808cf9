// Command httpwalk issues orchestrated HTTP requests from the shell:
// one-shot fetches with retry and redirect policies, or Link-header
// pagination walks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/httpwalk/httpwalk/pkg/logging"
)

var (
	configPath string
	logLevel   string
	logPretty  bool

	cfg FileConfig
)

var rootCmd = &cobra.Command{
	Use:   "httpwalk",
	Short: "HTTP fetch with retry, redirect, and Link pagination policies",
	Long: `httpwalk wraps a plain HTTP fetch with three cooperating behaviors:
automatic retry of failed requests, bounded manual redirect following,
and cursor pagination driven by the RFC 8288 Link header.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadFileConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if logPretty {
			cfg.Logging.Pretty = true
		}
		logging.Setup(logging.Config{
			Level:  logging.LogLevel(cfg.Logging.Level),
			Pretty: cfg.Logging.Pretty,
			Output: os.Stderr,
		})
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human-readable log output")
	rootCmd.AddCommand(fetchCmd, paginateCmd)
}
