package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
	"github.com/zhaiiker/zpdes-sequencer/internal/learner"
	"github.com/zhaiiker/zpdes-sequencer/internal/logger"
)

// Session is one learner working through exercises chosen by its own tree.
// A session is driven by one goroutine.
type Session struct {
	ID      string
	Learner learner.Learner

	tree    *bandit.Tree
	sampler *bandit.Sampler
	steps   []StepRecord

	log     *logger.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Tree returns the session's bandit tree.
func (s *Session) Tree() *bandit.Tree {
	return s.tree
}

// Steps returns the recorded turns.
func (s *Session) Steps() []StepRecord {
	return s.steps
}

// Step runs one turn: sample an action, build the exercise, collect the answer and
// update the tree.
func (s *Session) Step(ctx context.Context) (StepRecord, error) {
	turn := len(s.steps) + 1
	ctx, span := s.tracer.Start(ctx, "session.step", trace.WithAttributes(
		attribute.String("session", s.ID),
		attribute.Int("turn", turn),
	))
	defer span.End()

	rec, err := s.step(ctx, turn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return StepRecord{}, err
	}
	span.SetAttributes(
		attribute.String("kc", rec.KC),
		attribute.Float64("correct", rec.Correct),
		attribute.Int("transitions", len(rec.Transitions)),
	)
	return rec, nil
}

func (s *Session) step(ctx context.Context, turn int) (StepRecord, error) {
	action, err := s.sampler.Sample(s.tree)
	if err != nil {
		return StepRecord{}, fmt.Errorf("sample: %w", err)
	}
	ex, err := learner.NewExercise(s.tree, action)
	if err != nil {
		return StepRecord{}, fmt.Errorf("exercise: %w", err)
	}
	ans, err := s.Learner.Answer(ctx, ex)
	if err != nil {
		return StepRecord{}, fmt.Errorf("answer: %w", err)
	}

	start := time.Now()
	trs, err := s.tree.Update(action, ans.Correct, ans.ErrorID)
	s.metrics.UpdateSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return StepRecord{}, fmt.Errorf("update: %w", err)
	}

	s.metrics.Turns.Inc()
	s.metrics.Correct.Add(max(0, ans.Correct))
	s.metrics.observeTransitions(trs)
	if s.log.DebugEnabled() {
		for _, tr := range trs {
			s.log.Debug("activation changed",
				"turn", turn,
				"kind", tr.Kind(),
				"node", tr.Node,
				"value", tr.Value,
				"from", tr.From,
				"to", tr.To,
			)
		}
	}

	rec := StepRecord{
		Session:     s.ID,
		Learner:     s.Learner.ID(),
		Turn:        turn,
		Action:      action,
		KC:          ex.KC,
		Difficulty:  ex.Difficulty,
		Correct:     ans.Correct,
		ErrorID:     ans.ErrorID,
		Transitions: trs,
		ActiveArms:  s.tree.ActiveCount(),
		When:        ans.When,
	}
	s.steps = append(s.steps, rec)
	return rec, nil
}

// Run plays n turns, stopping early when ctx is done. Cancellation is only observed
// between turns.
func (s *Session) Run(ctx context.Context, n int) error {
	ctx, span := s.tracer.Start(ctx, "session.run", trace.WithAttributes(
		attribute.String("session", s.ID),
		attribute.String("learner", s.Learner.ID()),
		attribute.Int("turns", n),
	))
	defer span.End()

	s.log.Debug("session started", "turns", n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if _, err := s.Step(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	s.metrics.ActiveArms.WithLabelValues(s.Learner.ID()).Set(float64(s.tree.ActiveCount()))
	s.log.Debug("session finished", "turns", len(s.steps), "success_rate", successRate(s.steps))
	return nil
}

// Result summarizes the session.
func (s *Session) Result() SessionResult {
	return SessionResult{
		ID:      s.ID,
		Learner: s.Learner.ID(),
		Steps:   s.steps,
		Final:   s.tree.Snapshot(),
		Summary: summarize(s.steps, s.tree.ActiveCount()),
	}
}

func newSessionID() string {
	return uuid.NewString()
}
