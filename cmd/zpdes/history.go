package main

import (
	"github.com/spf13/cobra"

	"github.com/zhaiiker/zpdes-sequencer/internal/cache"
	"github.com/zhaiiker/zpdes-sequencer/internal/output"
)

var historyFlags struct {
	file     string
	clear    bool
	markdown bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the best recorded runs per graph and parameter set",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.file, "file", cache.DefaultCacheFile, "History file written by run --history")
	f.BoolVar(&historyFlags.clear, "clear", false, "Remove every recorded run")
	f.BoolVar(&historyFlags.markdown, "markdown", false, "Render a Markdown table")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	c, err := cache.Load(historyFlags.file)
	if err != nil {
		return err
	}
	if historyFlags.clear {
		c.Clear()
		return c.Save(historyFlags.file)
	}

	style := output.ASCII
	if historyFlags.markdown {
		style = output.Markdown
	}
	return output.WriteHistory(cmd.OutOrStdout(), c.Runs, style)
}
