package orchestrator

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"newsreel/internal/logging"
	"newsreel/internal/runstate"
	"newsreel/internal/services"
)

func TestExecuteRunsAllStepsAndCheckpoints(t *testing.T) {
	base := t.TempDir()
	a := newFakeStep(base, "collect", true)
	b := newFakeStep(base, "script", true)
	c := newFakeStep(base, "audio", true)

	orch := New(testRunID, steps(a, b, c), base, WithLogger(logging.NewNop()))
	result, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != StatusSuccess || result.ExitCode() != 0 {
		t.Fatalf("unexpected status %q", result.Status)
	}
	if len(result.Outputs) != 3 || result.Outputs["audio"] != c.OutputPath() {
		t.Fatalf("unexpected outputs %v", result.Outputs)
	}
	if b.inputs["collect"] != a.OutputPath() {
		t.Fatalf("script did not receive collect output: %v", b.inputs)
	}

	state := loadState(t, runstate.NewFileStore(base))
	if state.Status != runstate.StatusCompleted {
		t.Fatalf("persisted status %q", state.Status)
	}
	if !slices.Equal(state.CompletedSteps, []string{"collect", "script", "audio"}) {
		t.Fatalf("persisted steps %v", state.CompletedSteps)
	}
	if state.CompletedAt == nil {
		t.Fatal("completion not stamped")
	}
}

func TestExecuteSkipsCompletedSteps(t *testing.T) {
	base := t.TempDir()
	a := newFakeStep(base, "collect", true)
	b := newFakeStep(base, "script", true)

	first, err := New(testRunID, steps(a, b), base).Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// A resumed process builds its steps from scratch.
	freshA := newFakeStep(base, "collect", true)
	freshB := newFakeStep(base, "script", true)
	tracker := &recordingTracker{}
	second, err := New(testRunID, steps(freshA, freshB), base, WithTracker(tracker)).Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if freshA.calls != 0 || freshB.calls != 0 {
		t.Fatalf("completed steps re-executed: %d %d", freshA.calls, freshB.calls)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("first run call counts changed: %d %d", a.calls, b.calls)
	}
	if !maps.Equal(first.Outputs, second.Outputs) {
		t.Fatalf("outputs differ across resume: %v vs %v", first.Outputs, second.Outputs)
	}
	if second.Status != StatusSuccess || !second.Resumed || second.Attempt != 2 {
		t.Fatalf("unexpected result %+v", second)
	}
	for _, outcome := range tracker.outcomes {
		if outcome.State != StepSkipped {
			t.Fatalf("expected %s to be skipped from the record, got %q", outcome.Step, outcome.State)
		}
	}
	if len(tracker.outcomes) != 2 {
		t.Fatalf("expected 2 step outcomes, got %d", len(tracker.outcomes))
	}
}

func TestExecuteSkipsCompletedStepEvenWhenOutputMissing(t *testing.T) {
	base := t.TempDir()
	a := newFakeStep(base, "collect", true)
	if _, err := New(testRunID, steps(a), base).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(a.OutputPath()); err != nil {
		t.Fatal(err)
	}
	if _, err := New(testRunID, steps(a), base).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.calls != 1 {
		t.Fatalf("the record, not the filesystem, decides completion; calls=%d", a.calls)
	}
}

func TestRequiredFailureContainsRun(t *testing.T) {
	base := t.TempDir()
	a := newFakeStep(base, "collect", true)
	b := newFakeStep(base, "script", true)
	b.fail = errors.New("llm quota exceeded")
	c := newFakeStep(base, "audio", true)

	result, err := New(testRunID, steps(a, b, c), base).Execute(context.Background())
	if err != nil {
		t.Fatalf("containment must not surface an error: %v", err)
	}
	if result.Status != StatusPartial || result.ExitCode() != 1 {
		t.Fatalf("expected partial, got %q", result.Status)
	}
	if c.calls != 0 {
		t.Fatal("steps after a failed required step must not run")
	}
	if result.Outputs["collect"] != a.OutputPath() {
		t.Fatalf("prior outputs lost: %v", result.Outputs)
	}
	if !slices.Equal(result.Errors, []string{"script: llm quota exceeded"}) {
		t.Fatalf("unexpected errors %v", result.Errors)
	}

	state := loadState(t, runstate.NewFileStore(base))
	if state.Status != runstate.StatusPartial || state.StepStatuses["script"] != runstate.StepFailed {
		t.Fatalf("persisted state %+v", state)
	}
	if !state.IsCompleted("collect") {
		t.Fatal("partial progress rolled back")
	}
}

func TestFatalFailureEndsRunFailed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeStep)
		substr string
	}{
		{
			name:   "fatal marker",
			mutate: func(f *fakeStep) { f.fail = services.Wrap(services.ErrFatal, "script", "", "credentials revoked", nil) },
			substr: "credentials revoked",
		},
		{
			name:   "panic",
			mutate: func(f *fakeStep) { f.panics = true },
			substr: "panic: renderer exploded",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			base := t.TempDir()
			a := newFakeStep(base, "collect", true)
			b := newFakeStep(base, "script", true)
			tc.mutate(b)

			result, err := New(testRunID, steps(a, b), base).Execute(context.Background())
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if result.Status != StatusFailed {
				t.Fatalf("expected failed, got %q", result.Status)
			}
			if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "script: ") || !strings.Contains(result.Errors[0], tc.substr) {
				t.Fatalf("unexpected errors %v", result.Errors)
			}
			if state := loadState(t, runstate.NewFileStore(base)); state.Status != runstate.StatusFailed {
				t.Fatalf("persisted status %q", state.Status)
			}
		})
	}
}

func TestOptionalFailureContinues(t *testing.T) {
	base := t.TempDir()
	a := newFakeStep(base, "collect", true)
	upload := newFakeStep(base, "upload", false)
	upload.fail = errors.New("youtube 503")
	c := newFakeStep(base, "archive", true)

	result, err := New(testRunID, steps(a, upload, c), base).Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("optional failure should not fail the run, got %q", result.Status)
	}
	if c.calls != 1 {
		t.Fatal("step after optional failure did not run")
	}
	if !slices.Equal(result.Errors, []string{"upload: youtube 503"}) {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if _, ok := result.Outputs["upload"]; ok {
		t.Fatal("failed optional step has no output")
	}
	state := loadState(t, runstate.NewFileStore(base))
	if state.StepStatuses["upload"] != runstate.StepFailed || state.IsCompleted("upload") {
		t.Fatalf("optional failure not persisted: %+v", state)
	}
}

func TestMissingOutputIsContained(t *testing.T) {
	base := t.TempDir()
	a := newFakeStep(base, "render", true)
	a.noWrite = true

	result, err := New(testRunID, steps(a), base).Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusPartial {
		t.Fatalf("expected partial, got %q", result.Status)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "did not produce output") {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
}

func TestResumeConvergesAfterFix(t *testing.T) {
	base := t.TempDir()
	a := newFakeStep(base, "collect", true)
	b := newFakeStep(base, "script", true)
	b.fail = errors.New("transient")
	c := newFakeStep(base, "audio", true)

	first, err := New(testRunID, steps(a, b, c), base).Execute(context.Background())
	if err != nil || first.Status != StatusPartial {
		t.Fatalf("first run = %q, %v", first.Status, err)
	}

	b.fail = nil
	second, err := New(testRunID, steps(a, b, c), base).Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != StatusSuccess {
		t.Fatalf("expected success on resume, got %q", second.Status)
	}
	if a.calls != 1 || b.calls != 2 || c.calls != 1 {
		t.Fatalf("unexpected call counts collect=%d script=%d audio=%d", a.calls, b.calls, c.calls)
	}
	if len(second.Outputs) != 3 {
		t.Fatalf("expected all outputs, got %v", second.Outputs)
	}
	if !slices.Equal(second.Errors, []string{"script: transient"}) {
		t.Fatalf("error history should be kept, got %v", second.Errors)
	}

	state := loadState(t, runstate.NewFileStore(base))
	if state.Attempts != 2 || state.Status != runstate.StatusCompleted {
		t.Fatalf("unexpected persisted state %+v", state)
	}
	if state.StepStatuses["script"] != runstate.StepSuccess {
		t.Fatalf("resumed step status %q", state.StepStatuses["script"])
	}
}

func TestCorruptCheckpointIsLoud(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, testRunID, runstate.StateFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	a := newFakeStep(base, "collect", true)

	result, err := New(testRunID, steps(a), base).Execute(context.Background())
	if !errors.Is(err, runstate.ErrCorruptCheckpoint) {
		t.Fatalf("expected ErrCorruptCheckpoint, got %v", err)
	}
	if result.Status != StatusFailed || a.calls != 0 {
		t.Fatalf("corrupt checkpoint must not start steps: %q calls=%d", result.Status, a.calls)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{truncated" {
		t.Fatal("corrupt checkpoint was overwritten")
	}
}

func TestCancellationBetweenSteps(t *testing.T) {
	base := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newFakeStep(base, "collect", true)
	a.onRun = cancel
	b := newFakeStep(base, "script", true)

	result, err := New(testRunID, steps(a, b), base).Execute(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Status != StatusInterrupted || b.calls != 0 {
		t.Fatalf("unexpected result %q calls=%d", result.Status, b.calls)
	}
	state := loadState(t, runstate.NewFileStore(base))
	if state.Status != runstate.StatusRunning || !state.IsCompleted("collect") {
		t.Fatalf("in-flight step completion must persist: %+v", state)
	}

	resumed, err := New(testRunID, steps(a, b), base).Execute(context.Background())
	if err != nil || resumed.Status != StatusSuccess {
		t.Fatalf("resume = %q, %v", resumed.Status, err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("unexpected calls collect=%d script=%d", a.calls, b.calls)
	}
}

func TestCheckpointWriteFailureIsFatal(t *testing.T) {
	base := t.TempDir()
	store := &flakyStore{FileStore: runstate.NewFileStore(base), allowed: 1}
	a := newFakeStep(base, "collect", true)
	b := newFakeStep(base, "script", true)

	result, err := New(testRunID, steps(a, b), base, WithStore(store)).Execute(context.Background())
	if !errors.Is(err, services.ErrCheckpoint) || !errors.Is(err, errDiskFull) {
		t.Fatalf("expected checkpoint error, got %v", err)
	}
	if result.Status != StatusFailed || b.calls != 0 {
		t.Fatalf("unexpected result %q calls=%d", result.Status, b.calls)
	}
	if len(result.Errors) == 0 || !strings.HasPrefix(result.Errors[len(result.Errors)-1], "collect: ") {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
}

func TestDuplicateStepNamesRejected(t *testing.T) {
	base := t.TempDir()
	a := newFakeStep(base, "collect", true)
	dup := newFakeStep(base, "collect", true)

	result, err := New(testRunID, steps(a, dup), base).Execute(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if result.Status != StatusFailed || a.calls != 0 {
		t.Fatalf("unexpected result %q", result.Status)
	}
}

func TestBackfillsMissingStepStatus(t *testing.T) {
	base := t.TempDir()
	store := runstate.NewFileStore(base)
	seed := runstate.New(testRunID, time.Now())
	seed.CompletedSteps = []string{"collect"}
	seed.Outputs["collect"] = filepath.Join(base, testRunID, "collect.out")
	if err := store.Save(context.Background(), seed); err != nil {
		t.Fatal(err)
	}

	a := newFakeStep(base, "collect", true)
	b := newFakeStep(base, "script", true)
	if _, err := New(testRunID, steps(a, b), base).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	state := loadState(t, store)
	if state.StepStatuses["collect"] != runstate.StepSuccess {
		t.Fatalf("expected backfilled status, got %q", state.StepStatuses["collect"])
	}
	if a.calls != 0 {
		t.Fatal("completed step executed")
	}
}

func TestTrackerReceivesEvents(t *testing.T) {
	base := t.TempDir()
	first := &recordingTracker{}
	second := &recordingTracker{err: errors.New("tracker offline")}
	a := newFakeStep(base, "collect", true)
	opt := newFakeStep(base, "upload", false)
	opt.fail = errors.New("denied")

	clock := &stepClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	result, err := New(testRunID, steps(a, opt), base,
		WithTracker(first), WithTracker(second), WithClock(clock.Now),
	).Execute(context.Background())
	if err != nil {
		t.Fatalf("tracker errors must not fail the run: %v", err)
	}
	if result.Status != StatusSuccess || result.Duration <= 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	for _, tr := range []*recordingTracker{first, second} {
		if len(tr.opened) != 1 || !slices.Equal(tr.opened[0].Steps, []string{"collect", "upload"}) {
			t.Fatalf("unexpected open events %+v", tr.opened)
		}
		if len(tr.outcomes) != 2 || tr.outcomes[0].State != StepSucceeded || tr.outcomes[1].State != StepFailed {
			t.Fatalf("unexpected outcomes %+v", tr.outcomes)
		}
		if tr.outcomes[1].Required || tr.outcomes[1].Err == nil {
			t.Fatalf("optional failure outcome incomplete: %+v", tr.outcomes[1])
		}
		if len(tr.results) != 1 || tr.results[0].Status != StatusSuccess {
			t.Fatalf("unexpected finalize %+v", tr.results)
		}
	}

	// Resumed run reports skips.
	third := &recordingTracker{}
	if _, err := New(testRunID, steps(a, opt), base, WithTracker(third)).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if third.outcomes[0].State != StepSkipped || !third.opened[0].Resumed {
		t.Fatalf("expected skip on resume, got %+v", third.outcomes)
	}
}

func TestExecuteWithSQLiteStore(t *testing.T) {
	base := t.TempDir()
	store, err := runstate.OpenSQLite(filepath.Join(base, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a := newFakeStep(base, "collect", true)
	b := newFakeStep(base, "script", true)
	b.fail = errors.New("boom")

	result, err := New(testRunID, steps(a, b), base, WithStore(store)).Execute(context.Background())
	if err != nil || result.Status != StatusPartial {
		t.Fatalf("first = %q, %v", result.Status, err)
	}
	b.fail = nil
	result, err = New(testRunID, steps(a, b), base, WithStore(store)).Execute(context.Background())
	if err != nil || result.Status != StatusSuccess {
		t.Fatalf("resume = %q, %v", result.Status, err)
	}
	if a.calls != 1 {
		t.Fatalf("collect re-ran with sqlite store")
	}
	if !strings.HasSuffix(result.Checkpoint, "#"+testRunID) {
		t.Fatalf("unexpected checkpoint location %q", result.Checkpoint)
	}
}

func TestEmptyPipelineSucceeds(t *testing.T) {
	result, err := New(testRunID, nil, t.TempDir()).Execute(context.Background())
	if err != nil || result.Status != StatusSuccess {
		t.Fatalf("empty pipeline = %q, %v", result.Status, err)
	}
}
