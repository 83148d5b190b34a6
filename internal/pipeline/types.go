package pipeline

import (
	"context"
	"time"
)

// RunState is the state of one pipeline run.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
)

// StepState is the state of one step within a run.
type StepState string

const (
	StepStatePending   StepState = "pending"
	StepStateRunning   StepState = "running"
	StepStateCompleted StepState = "completed"
	StepStateFailed    StepState = "failed"
	StepStateSkipped   StepState = "skipped"
)

// StepID names a step within a pipeline.
type StepID string

// Step is one stage of a pipeline. Steps share state through the closure or
// struct that implements them.
type Step interface {
	ID() StepID
	Execute(ctx context.Context) error
}

type funcStep struct {
	id StepID
	fn func(ctx context.Context) error
}

func (s funcStep) ID() StepID                        { return s.id }
func (s funcStep) Execute(ctx context.Context) error { return s.fn(ctx) }

// NewStep wraps a function as a Step.
func NewStep(id StepID, fn func(ctx context.Context) error) Step {
	return funcStep{id: id, fn: fn}
}

// Run records the execution of a pipeline.
type Run struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	State       RunState        `json:"state"`
	Steps       []StepExecution `json:"steps"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// StepExecution is the recorded state of a step.
type StepExecution struct {
	ID          StepID     `json:"id"`
	State       StepState  `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// FailedStep returns the step that stopped the run, if any.
func (r *Run) FailedStep() (StepID, bool) {
	for _, s := range r.Steps {
		if s.State == StepStateFailed {
			return s.ID, true
		}
	}
	return "", false
}
