package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhaiiker/zpdes-sequencer/internal/engine"
	"github.com/zhaiiker/zpdes-sequencer/internal/graph"
	"github.com/zhaiiker/zpdes-sequencer/internal/learner"
	"github.com/zhaiiker/zpdes-sequencer/internal/output"
)

var inspectFlags struct {
	config   string
	graph    string
	simulate int
	seed     int64
	markdown bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build the bandit tree of a graph and print its activation state",
	RunE:  runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectFlags.config, "config", "", "YAML engine config for bandit parameters")
	f.StringVar(&inspectFlags.graph, "graph", "", "Graph definition file (YAML or JSON)")
	f.IntVar(&inspectFlags.simulate, "simulate", 0, "Play this many turns with one simulated learner first")
	f.Int64Var(&inspectFlags.seed, "seed", 1, "Random seed for --simulate")
	f.BoolVar(&inspectFlags.markdown, "markdown", false, "Render a Markdown table")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := engine.LoadConfig(inspectFlags.config)
	if err != nil {
		return err
	}
	if inspectFlags.graph != "" {
		cfg.Graph = inspectFlags.graph
	}
	if cfg.Graph == "" {
		return errors.New("--graph is required (or set graph in --config)")
	}
	def, err := graph.Load(cfg.Graph)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	cfg.Seed = inspectFlags.seed
	eng, err := engine.New(cfg, def)
	if err != nil {
		return err
	}
	s, err := eng.NewSession(learner.NewSimulated("inspect", inspectFlags.seed, cfg.Learner), inspectFlags.seed)
	if err != nil {
		return err
	}
	if inspectFlags.simulate > 0 {
		if err := s.Run(context.Background(), inspectFlags.simulate); err != nil {
			return err
		}
	}

	style := output.ASCII
	if inspectFlags.markdown {
		style = output.Markdown
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "root: %s  nodes: %d  strategy: %s\n", s.Tree().Root(), len(s.Tree().Nodes()), cfg.Params.Strategy)
	return output.WriteTable(out, s.Tree().Snapshot(), style)
}
