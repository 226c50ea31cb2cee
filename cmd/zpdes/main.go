// zpdes runs ZPDES exercise sequencing over a skill graph with simulated learners.
//
// Usage:
//
//	zpdes run --graph examples/graph.yaml --learners 20 --turns 200 --out csv
//	zpdes run --config examples/config.yaml --out summary --trace
//	zpdes inspect --graph examples/graph.yaml --simulate 50
//	zpdes history --file .zpdes_runs.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhaiiker/zpdes-sequencer/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logMode  string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "zpdes",
	Short: "Adaptive exercise sequencing with hierarchical ZPDES bandits",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logMode, "log-mode", "dev", "Log encoding: dev|prod")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Minimum log level")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version
}

func newLogger() (*logger.Logger, error) {
	return logger.New(rootFlags.logMode, rootFlags.logLevel)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
