package orchestrator

import (
	"context"
	"errors"
	"time"
)

// RunInfo describes a run as it opens.
type RunInfo struct {
	RunID      string
	Checkpoint string
	Steps      []string
	Resumed    bool
	Attempt    int
	StartedAt  time.Time
}

// StepState is the outcome of one step within an Execute call.
type StepState string

const (
	StepSucceeded StepState = "success"
	StepSkipped   StepState = "skipped"
	StepFailed    StepState = "failed"
)

// StepOutcome is reported to trackers after each step.
type StepOutcome struct {
	Step     string
	State    StepState
	Required bool
	Output   string
	Err      error
	Duration time.Duration
}

// Tracker observes one Execute call. Errors are logged and never change the
// run outcome.
type Tracker interface {
	Open(ctx context.Context, info RunInfo) error
	StepFinished(ctx context.Context, outcome StepOutcome) error
	Finalize(ctx context.Context, result Result) error
}

// NopTracker ignores everything.
type NopTracker struct{}

func (NopTracker) Open(context.Context, RunInfo) error             { return nil }
func (NopTracker) StepFinished(context.Context, StepOutcome) error { return nil }
func (NopTracker) Finalize(context.Context, Result) error          { return nil }

// Trackers fans out to each tracker in order.
type Trackers []Tracker

func (ts Trackers) Open(ctx context.Context, info RunInfo) error {
	var errs []error
	for _, t := range ts {
		errs = append(errs, t.Open(ctx, info))
	}
	return errors.Join(errs...)
}

func (ts Trackers) StepFinished(ctx context.Context, outcome StepOutcome) error {
	var errs []error
	for _, t := range ts {
		errs = append(errs, t.StepFinished(ctx, outcome))
	}
	return errors.Join(errs...)
}

func (ts Trackers) Finalize(ctx context.Context, result Result) error {
	var errs []error
	for _, t := range ts {
		errs = append(errs, t.Finalize(ctx, result))
	}
	return errors.Join(errs...)
}
