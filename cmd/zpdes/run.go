package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
	"github.com/zhaiiker/zpdes-sequencer/internal/cache"
	"github.com/zhaiiker/zpdes-sequencer/internal/engine"
	"github.com/zhaiiker/zpdes-sequencer/internal/graph"
	"github.com/zhaiiker/zpdes-sequencer/internal/output"
)

var runFlags struct {
	config      string
	graph       string
	learners    int
	turns       int
	concurrency int
	seed        int64
	gamma       float64
	strategy    string
	outFmt      string
	outPath     string
	metricsPath string
	history     string
	trace       bool
	verbose     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run sequencing sessions for a population of simulated learners",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.config, "config", "", "YAML engine config (flags override it)")
	f.StringVar(&runFlags.graph, "graph", "", "Graph definition file (YAML or JSON)")
	f.IntVar(&runFlags.learners, "learners", 10, "Number of simulated learners")
	f.IntVar(&runFlags.turns, "turns", 100, "Exercises per learner")
	f.IntVar(&runFlags.concurrency, "concurrency", 4, "Sessions run in parallel")
	f.Int64Var(&runFlags.seed, "seed", 0, "Random seed (0 = time-based)")
	f.Float64Var(&runFlags.gamma, "gamma", 0.1, "Uniform exploration share among active values")
	f.StringVar(&runFlags.strategy, "strategy", "", "Promotion strategy: async|windowed")
	f.StringVar(&runFlags.outFmt, "out", "summary", "Output format: jsonl|csv|text|summary|markdown|debug")
	f.StringVar(&runFlags.outPath, "out-file", "", "Write output to file (default: stdout)")
	f.StringVar(&runFlags.metricsPath, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	f.StringVar(&runFlags.history, "history", "", "Record the run summary in this history file")
	f.BoolVar(&runFlags.trace, "trace", false, "Export spans to stderr")
	f.BoolVarP(&runFlags.verbose, "verbose", "v", false, "Log progress per finished session")
}

func runRun(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := engine.LoadConfig(runFlags.config)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)
	if cfg.Graph == "" {
		return errors.New("--graph is required (or set graph in --config)")
	}

	def, err := graph.Load(cfg.Graph)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithMetrics(engine.NewMetrics(reg)),
	}
	if runFlags.trace {
		shutdown, tp, err := stderrTracer()
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
		opts = append(opts, engine.WithTracerProvider(tp))
	}

	eng, err := engine.New(cfg, def, opts...)
	if err != nil {
		return err
	}
	res, runErr := eng.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		log.Warn("run interrupted, writing partial results")
	}

	if runFlags.metricsPath != "" {
		if err := prometheus.WriteToTextfile(runFlags.metricsPath, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if runFlags.history != "" && runErr == nil {
		if err := recordHistory(runFlags.history, eng.Config(), res); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if runFlags.outPath != "" {
		f, err := os.Create(runFlags.outPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		w = f
	}
	return writeResponse(w, res, runFlags.outFmt)
}

func applyRunFlags(cmd *cobra.Command, cfg *engine.Config) {
	f := cmd.Flags()
	if f.Changed("graph") {
		cfg.Graph = runFlags.graph
	}
	if f.Changed("learners") {
		cfg.Learners = runFlags.learners
	}
	if f.Changed("turns") {
		cfg.Turns = runFlags.turns
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = runFlags.concurrency
	}
	if f.Changed("seed") {
		cfg.Seed = runFlags.seed
	}
	if f.Changed("gamma") {
		cfg.Gamma = runFlags.gamma
	}
	if f.Changed("strategy") {
		cfg.Params.Strategy = bandit.PromotionMode(runFlags.strategy)
	}
	if f.Changed("verbose") {
		cfg.Verbose = runFlags.verbose
	}
}

func recordHistory(path string, cfg engine.Config, res engine.Response) error {
	c, err := cache.Load(path)
	if err != nil {
		return err
	}
	c.Update([]cache.RunEntry{cache.EntryFor(cfg, res)}, 0)
	return c.Save(path)
}

func writeResponse(w io.Writer, res engine.Response, format string) error {
	switch format {
	case "jsonl":
		return output.WriteJSONL(w, res.Steps())
	case "csv":
		return output.WriteCSV(w, res.Steps())
	case "text":
		return output.WriteText(w, res.Steps())
	case "summary":
		return output.WriteSummary(w, res, output.ASCII)
	case "markdown":
		return output.WriteSummary(w, res, output.Markdown)
	case "debug":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		return fmt.Errorf("unknown --out: %s", format)
	}
}

func stderrTracer() (func(context.Context) error, *sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	return tp.Shutdown, tp, nil
}
