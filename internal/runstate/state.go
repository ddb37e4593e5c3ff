package runstate

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
)

// Terminal reports whether the status ends an attempt.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial:
		return true
	default:
		return false
	}
}

// StepStatus tracks one step inside a run.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
)

// ErrTerminal is returned when a finished attempt is asked to transition
// again without being reopened.
var ErrTerminal = errors.New("run already reached a terminal status")

// State is the persisted progress record of a single run.
type State struct {
	RunID          string                `json:"run_id"`
	Status         Status                `json:"status"`
	CompletedSteps []string              `json:"completed_steps"`
	Outputs        map[string]string     `json:"outputs"`
	StepStatuses   map[string]StepStatus `json:"step_statuses"`
	Errors         []string              `json:"errors"`
	StartedAt      time.Time             `json:"started_at"`
	CompletedAt    *time.Time            `json:"completed_at"`
	Attempts       int                   `json:"attempts"`
}

// New returns a fresh running record.
func New(runID string, startedAt time.Time) *State {
	return &State{
		RunID:          runID,
		Status:         StatusRunning,
		CompletedSteps: []string{},
		Outputs:        map[string]string{},
		StepStatuses:   map[string]StepStatus{},
		Errors:         []string{},
		StartedAt:      startedAt.UTC(),
	}
}

// IsCompleted reports whether the step already finished successfully.
func (s *State) IsCompleted(step string) bool {
	return slices.Contains(s.CompletedSteps, step)
}

// BeginAttempt starts a new execution attempt. A terminal record is reopened
// so that resumption can move it forward again; completed steps are kept.
func (s *State) BeginAttempt() {
	s.normalize()
	if s.Status.Terminal() {
		s.Status = StatusRunning
		s.CompletedAt = nil
	}
	s.Attempts++
}

// MarkCompleted records a successful step. Re-marking is harmless.
func (s *State) MarkCompleted(step, output string) {
	s.normalize()
	if !s.IsCompleted(step) {
		s.CompletedSteps = append(s.CompletedSteps, step)
	}
	s.Outputs[step] = output
	s.StepStatuses[step] = StepSuccess
}

// MarkFailed ends the attempt as failed.
func (s *State) MarkFailed(step, message string, at time.Time) error {
	return s.finishWithError(StatusFailed, step, message, at)
}

// MarkPartial ends the attempt as partial: a required step failed but earlier
// outputs remain usable.
func (s *State) MarkPartial(step, message string, at time.Time) error {
	return s.finishWithError(StatusPartial, step, message, at)
}

// RecordStepError notes an optional-step failure without ending the attempt.
func (s *State) RecordStepError(step, message string) {
	s.normalize()
	if step != "" {
		s.StepStatuses[step] = StepFailed
	}
	s.Errors = append(s.Errors, FormatError(step, message))
}

// MarkSuccess ends the attempt as completed.
func (s *State) MarkSuccess(at time.Time) error {
	if s.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, s.Status)
	}
	s.normalize()
	s.Status = StatusCompleted
	s.stamp(at)
	return nil
}

// BackfillStepStatus sets a success status for a completed step that lacks
// one. It does not persist.
func (s *State) BackfillStepStatus(step string) {
	s.normalize()
	if _, ok := s.StepStatuses[step]; !ok && s.IsCompleted(step) {
		s.StepStatuses[step] = StepSuccess
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.CompletedSteps = slices.Clone(s.CompletedSteps)
	out.Outputs = maps.Clone(s.Outputs)
	out.StepStatuses = maps.Clone(s.StepStatuses)
	out.Errors = slices.Clone(s.Errors)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	out.normalize()
	return &out
}

// Duration is the wall time from start to completion, or to now when the run
// has not completed.
func (s *State) Duration(now time.Time) time.Duration {
	end := now
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// FormatError renders an error list entry.
func FormatError(step, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	if step == "" {
		return message
	}
	return step + ": " + message
}

func (s *State) finishWithError(status Status, step, message string, at time.Time) error {
	if s.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, s.Status)
	}
	s.normalize()
	s.Status = status
	if step != "" {
		s.StepStatuses[step] = StepFailed
	}
	s.Errors = append(s.Errors, FormatError(step, message))
	s.stamp(at)
	return nil
}

func (s *State) stamp(at time.Time) {
	at = at.UTC()
	s.CompletedAt = &at
}

func (s *State) normalize() {
	if s.Status == "" {
		s.Status = StatusRunning
	}
	if s.CompletedSteps == nil {
		s.CompletedSteps = []string{}
	}
	if s.Outputs == nil {
		s.Outputs = map[string]string{}
	}
	if s.StepStatuses == nil {
		s.StepStatuses = map[string]StepStatus{}
	}
	if s.Errors == nil {
		s.Errors = []string{}
	}
}

func (s *State) validate() error {
	if strings.TrimSpace(s.RunID) == "" {
		return errors.New("missing run_id")
	}
	switch s.Status {
	case StatusRunning, StatusCompleted, StatusFailed, StatusPartial:
	default:
		return fmt.Errorf("unknown status %q", s.Status)
	}
	for step := range s.Outputs {
		if !s.IsCompleted(step) {
			return fmt.Errorf("output recorded for step %q that is not completed", step)
		}
	}
	return nil
}
