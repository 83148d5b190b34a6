// Package pipeline runs named sequences of steps, recording the state of each
// step. A failing step stops the run; earlier steps are not undone.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
)

// Runner executes pipelines.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a new pipeline runner
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes steps in order on the calling goroutine. It returns the run
// record and, unwrapped, the error of the first failing step.
func (r *Runner) Run(ctx context.Context, name string, steps ...Step) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Name:      name,
		State:     RunStateRunning,
		Steps:     make([]StepExecution, len(steps)),
		StartedAt: time.Now(),
	}
	for i, step := range steps {
		run.Steps[i] = StepExecution{ID: step.ID(), State: StepStatePending}
	}

	logger := r.logger.With(zap.String("pipeline", name), zap.String("runID", run.ID))
	logger.Debug("Pipeline started", zap.Int("steps", len(steps)))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return r.fail(logger, run, i, domain.Cancelled(ctx, err))
		}

		started := time.Now()
		run.Steps[i].State = StepStateRunning
		run.Steps[i].StartedAt = &started

		if err := step.Execute(ctx); err != nil {
			return r.fail(logger, run, i, domain.Cancelled(ctx, err))
		}

		completed := time.Now()
		run.Steps[i].State = StepStateCompleted
		run.Steps[i].CompletedAt = &completed
		logger.Debug("Step completed",
			zap.String("stepID", string(step.ID())),
			zap.Duration("took", completed.Sub(started)))
	}

	completed := time.Now()
	run.State = RunStateCompleted
	run.CompletedAt = &completed
	logger.Info("Pipeline completed", zap.Duration("took", completed.Sub(run.StartedAt)))
	return run, nil
}

func (r *Runner) fail(logger *zap.Logger, run *Run, index int, err error) (*Run, error) {
	now := time.Now()
	run.Steps[index].State = StepStateFailed
	run.Steps[index].CompletedAt = &now
	run.Steps[index].Error = err.Error()
	for i := index + 1; i < len(run.Steps); i++ {
		run.Steps[i].State = StepStateSkipped
	}
	run.State = RunStateFailed
	run.CompletedAt = &now
	run.Error = err.Error()

	logger.Error("Step failed",
		zap.String("stepID", string(run.Steps[index].ID)),
		zap.Error(err))
	return run, err
}
