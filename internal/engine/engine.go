package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
	"github.com/zhaiiker/zpdes-sequencer/internal/graph"
	"github.com/zhaiiker/zpdes-sequencer/internal/learner"
	"github.com/zhaiiker/zpdes-sequencer/internal/logger"
)

const tracerName = "github.com/zhaiiker/zpdes-sequencer/internal/engine"

// Engine runs independent learner sessions over one graph definition.
type Engine struct {
	cfg Config
	def *graph.Definition

	log     *logger.Logger
	metrics *Metrics
	tracer  trace.Tracer

	// newLearners builds the learners of a batch run.
	newLearners func(n int, seed int64) []learner.Learner

	completed int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the collectors. The default is an unregistered set.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// WithLearners replaces the simulated learner population of Run.
func WithLearners(f func(n int, seed int64) []learner.Learner) Option {
	return func(e *Engine) { e.newLearners = f }
}

// New creates an engine. The configuration is defaulted and validated, and the
// definition is checked by building one tree from it.
func New(cfg Config, def *graph.Definition, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if _, err := bandit.Build(def, cfg.Params); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		def:    def,
		log:    logger.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.newLearners == nil {
		lc := cfg.Learner
		e.newLearners = func(n int, seed int64) []learner.Learner {
			return learner.Population(n, seed, lc)
		}
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// NewSession creates a session for l with a fresh tree and a sampler seeded with seed.
func (e *Engine) NewSession(l learner.Learner, seed int64) (*Session, error) {
	tree, err := bandit.Build(e.def, e.cfg.Params)
	if err != nil {
		return nil, err
	}
	id := newSessionID()
	return &Session{
		ID:      id,
		Learner: l,
		tree:    tree,
		sampler: bandit.NewSampler(seed, e.cfg.Gamma),
		log:     e.log.With("session", id, "learner", l.ID()),
		metrics: e.metrics,
		tracer:  e.tracer,
	}, nil
}

// Run plays cfg.Turns turns for cfg.Learners learners, at most cfg.Concurrency sessions
// at a time. A failing session cancels the others.
func (e *Engine) Run(ctx context.Context) (Response, error) {
	ctx, span := e.tracer.Start(ctx, "engine.run", trace.WithAttributes(
		attribute.Int("learners", e.cfg.Learners),
		attribute.Int("turns", e.cfg.Turns),
		attribute.Int64("seed", e.cfg.Seed),
	))
	defer span.End()

	learners := e.newLearners(e.cfg.Learners, e.cfg.Seed)
	sessions := make([]*Session, len(learners))
	for i, l := range learners {
		s, err := e.NewSession(l, e.cfg.Seed+int64(i))
		if err != nil {
			return Response{}, err
		}
		sessions[i] = s
	}

	atomic.StoreInt64(&e.completed, 0)
	e.log.Info("run started",
		"learners", len(sessions),
		"turns", e.cfg.Turns,
		"concurrency", e.cfg.Concurrency,
		"seed", e.cfg.Seed,
		"strategy", e.cfg.Params.Strategy,
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, s := range sessions {
		g.Go(func() error {
			err := s.Run(gctx, e.cfg.Turns)
			e.finish(s, err, len(sessions), start)
			return err
		})
	}
	err := g.Wait()

	res := Response{Seed: e.cfg.Seed, Sessions: make([]SessionResult, len(sessions))}
	for i, s := range sessions {
		res.Sessions[i] = s.Result()
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return res, fmt.Errorf("session: %w", err)
	}
	e.log.Info("run finished", "elapsed", time.Since(start).Truncate(time.Millisecond), "success_rate", res.Summary().SuccessRate)
	return res, err
}

func (e *Engine) finish(s *Session, err error, total int, start time.Time) {
	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result = "canceled"
		}
	}
	e.metrics.Sessions.WithLabelValues(result).Inc()

	done := atomic.AddInt64(&e.completed, 1)
	if e.cfg.Verbose {
		e.log.Info("progress",
			"done", done,
			"total", total,
			"session", s.ID,
			"success_rate", successRate(s.Steps()),
			"elapsed", time.Since(start).Truncate(100*time.Millisecond),
		)
	}
}
