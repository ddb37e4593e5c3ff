package orchestrator

import (
	"time"

	"newsreel/internal/runstate"
)

// Status is the outcome of one Execute call.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusPartial     Status = "partial"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Result is the terminal report of an Execute call.
type Result struct {
	Status          Status            `json:"status"`
	RunID           string            `json:"run_id"`
	Outputs         map[string]string `json:"outputs"`
	Errors          []string          `json:"errors"`
	Duration        time.Duration     `json:"-"`
	DurationSeconds float64           `json:"duration_seconds"`
	Checkpoint      string            `json:"checkpoint"`
	Resumed         bool              `json:"resumed"`
	Attempt         int               `json:"attempt"`
}

// Success reports whether every step completed.
func (r Result) Success() bool { return r.Status == StatusSuccess }

// ExitCode maps the result to a process exit status.
func (r Result) ExitCode() int {
	if r.Success() {
		return 0
	}
	return 1
}

func statusFromState(s runstate.Status) Status {
	switch s {
	case runstate.StatusCompleted:
		return StatusSuccess
	case runstate.StatusPartial:
		return StatusPartial
	case runstate.StatusFailed:
		return StatusFailed
	default:
		return StatusInterrupted
	}
}
