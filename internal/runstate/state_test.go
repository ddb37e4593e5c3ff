package runstate

import (
	"errors"
	"slices"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestMarkCompletedIsIdempotent(t *testing.T) {
	s := New("r1", t0)
	s.MarkCompleted("collect", "/runs/r1/news.json")
	s.MarkCompleted("collect", "/runs/r1/news.json")
	s.MarkCompleted("script", "/runs/r1/script.txt")

	if !slices.Equal(s.CompletedSteps, []string{"collect", "script"}) {
		t.Fatalf("unexpected completed steps %v", s.CompletedSteps)
	}
	if s.StepStatuses["collect"] != StepSuccess {
		t.Fatalf("expected success status, got %q", s.StepStatuses["collect"])
	}
	if s.Status != StatusRunning {
		t.Fatalf("completing steps must not end the run, got %q", s.Status)
	}
	if err := s.validate(); err != nil {
		t.Fatalf("record should be valid: %v", err)
	}
}

func TestTerminalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(*State) error
		status Status
		errors []string
	}{
		{
			name:   "failed",
			apply:  func(s *State) error { return s.MarkFailed("render", "ffmpeg crashed", t0.Add(time.Minute)) },
			status: StatusFailed,
			errors: []string{"render: ffmpeg crashed"},
		},
		{
			name:   "partial",
			apply:  func(s *State) error { return s.MarkPartial("render", "no providers", t0.Add(time.Minute)) },
			status: StatusPartial,
			errors: []string{"render: no providers"},
		},
		{
			name:   "success",
			apply:  func(s *State) error { return s.MarkSuccess(t0.Add(time.Minute)) },
			status: StatusCompleted,
			errors: []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New("r1", t0)
			if err := tc.apply(s); err != nil {
				t.Fatalf("transition: %v", err)
			}
			if s.Status != tc.status {
				t.Fatalf("status = %q, want %q", s.Status, tc.status)
			}
			if !slices.Equal(s.Errors, tc.errors) {
				t.Fatalf("errors = %v, want %v", s.Errors, tc.errors)
			}
			if s.CompletedAt == nil || !s.CompletedAt.Equal(t0.Add(time.Minute)) {
				t.Fatalf("completion not stamped: %v", s.CompletedAt)
			}
			if tc.status != StatusCompleted && s.StepStatuses["render"] != StepFailed {
				t.Fatalf("expected render failed, got %q", s.StepStatuses["render"])
			}
			if err := s.MarkSuccess(t0); !errors.Is(err, ErrTerminal) {
				t.Fatalf("second transition should be rejected, got %v", err)
			}
		})
	}
}

func TestRecordStepErrorKeepsRunning(t *testing.T) {
	s := New("r1", t0)
	s.RecordStepError("upload", "quota exceeded")

	if s.Status != StatusRunning {
		t.Fatalf("optional failure changed status to %q", s.Status)
	}
	if s.StepStatuses["upload"] != StepFailed {
		t.Fatalf("expected upload failed, got %q", s.StepStatuses["upload"])
	}
	if !slices.Equal(s.Errors, []string{"upload: quota exceeded"}) {
		t.Fatalf("unexpected errors %v", s.Errors)
	}
	if s.CompletedAt != nil {
		t.Fatal("optional failure must not stamp completion")
	}
}

func TestBeginAttemptReopensTerminalRecord(t *testing.T) {
	s := New("r1", t0)
	s.BeginAttempt()
	s.MarkCompleted("collect", "/x")
	if err := s.MarkPartial("script", "boom", t0); err != nil {
		t.Fatal(err)
	}

	s.BeginAttempt()
	if s.Status != StatusRunning || s.CompletedAt != nil {
		t.Fatalf("expected reopened record, got %q %v", s.Status, s.CompletedAt)
	}
	if s.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", s.Attempts)
	}
	if !s.IsCompleted("collect") || len(s.Errors) != 1 {
		t.Fatal("reopening must keep progress and history")
	}
}

func TestBackfillStepStatus(t *testing.T) {
	s := New("r1", t0)
	s.CompletedSteps = []string{"collect"}
	s.Outputs["collect"] = "/x"

	s.BackfillStepStatus("collect")
	s.BackfillStepStatus("unknown")
	if s.StepStatuses["collect"] != StepSuccess {
		t.Fatalf("expected backfilled success, got %q", s.StepStatuses["collect"])
	}
	if _, ok := s.StepStatuses["unknown"]; ok {
		t.Fatal("backfill must only touch completed steps")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := New("r1", t0)
	s.MarkCompleted("collect", "/x")
	c := s.Clone()
	c.MarkCompleted("script", "/y")
	c.Errors = append(c.Errors, "e")

	if s.IsCompleted("script") || len(s.Outputs) != 1 || len(s.Errors) != 0 {
		t.Fatal("clone shares storage with original")
	}
}

func TestFormatError(t *testing.T) {
	if got := FormatError("", "disk full"); got != "disk full" {
		t.Fatalf("got %q", got)
	}
	if got := FormatError("audio", " "); got != "audio: unknown error" {
		t.Fatalf("got %q", got)
	}
}

func TestValidateRunID(t *testing.T) {
	for _, id := range []string{"", " r1", "..", "a/b", `a\b`} {
		if err := ValidateRunID(id); !errors.Is(err, ErrInvalidRunID) {
			t.Fatalf("%q: expected ErrInvalidRunID, got %v", id, err)
		}
	}
	if err := ValidateRunID(NewRunID(t0)); err != nil {
		t.Fatalf("generated id rejected: %v", err)
	}
}

func TestNewRunID(t *testing.T) {
	a := NewRunID(t0)
	b := NewRunID(t0)
	if a == b {
		t.Fatal("run ids should be unique")
	}
	if len(a) != len("20260314-093000-")+8 || a[:16] != "20260314-093000-" {
		t.Fatalf("unexpected run id format %q", a)
	}
}
