package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"newsreel/internal/runstate"
	"newsreel/internal/step"
)

const testRunID = "20260314-093000-abcd1234"

// fakeStep writes its output unless told to fail.
type fakeStep struct {
	step.Base
	calls   int
	fail    error
	panics  bool
	noWrite bool
	inputs  step.Inputs
	onRun   func()
}

func newFakeStep(base, name string, required bool) *fakeStep {
	return &fakeStep{Base: step.Base{
		StepName:   name,
		RunID:      testRunID,
		RunDir:     base,
		OutputFile: name + ".out",
		Optional:   !required,
	}}
}

func (f *fakeStep) Execute(ctx context.Context, inputs step.Inputs) (string, error) {
	f.calls++
	f.inputs = inputs.Clone()
	if f.onRun != nil {
		f.onRun()
	}
	if f.panics {
		panic("renderer exploded")
	}
	if f.fail != nil {
		return "", f.fail
	}
	out := f.OutputPath()
	if f.noWrite {
		return out, nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(out, []byte(f.StepName), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func steps(fs ...*fakeStep) []step.Step {
	out := make([]step.Step, 0, len(fs))
	for _, f := range fs {
		out = append(out, f)
	}
	return out
}

func loadState(t *testing.T, store runstate.Store) *runstate.State {
	t.Helper()
	s, found, err := store.Load(context.Background(), testRunID)
	if err != nil || !found {
		t.Fatalf("Load = %v, %v", found, err)
	}
	return s
}

type recordingTracker struct {
	mu       sync.Mutex
	opened   []RunInfo
	outcomes []StepOutcome
	results  []Result
	err      error
}

func (r *recordingTracker) Open(_ context.Context, info RunInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, info)
	return r.err
}

func (r *recordingTracker) StepFinished(_ context.Context, outcome StepOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	return r.err
}

func (r *recordingTracker) Finalize(_ context.Context, result Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return r.err
}

// flakyStore fails every Save after the first allowed ones.
type flakyStore struct {
	*runstate.FileStore
	allowed int
	saves   int
}

var errDiskFull = errors.New("no space left on device")

func (s *flakyStore) Save(ctx context.Context, state *runstate.State) error {
	s.saves++
	if s.saves > s.allowed {
		return errDiskFull
	}
	return s.FileStore.Save(ctx, state)
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}
