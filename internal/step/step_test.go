package step_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"newsreel/internal/services"
	"newsreel/internal/step"
)

func newBase(t *testing.T, name string) step.Base {
	t.Helper()
	return step.Base{
		StepName:   name,
		RunID:      "run-1",
		RunDir:     t.TempDir(),
		OutputFile: name + ".txt",
	}
}

func writeOutput(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("artifact"), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}
}

func TestRunSkipsWhenOutputExists(t *testing.T) {
	calls := 0
	s := step.NewFunc(newBase(t, "collect"), func(ctx context.Context, _ step.Inputs, output string) (string, error) {
		calls++
		writeOutput(t, output)
		return output, nil
	})

	first, err := step.Run(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := step.Run(context.Background(), s, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected execute once, got %d", calls)
	}
	if first != second || first != s.OutputPath() {
		t.Fatalf("unexpected outputs %q %q", first, second)
	}
}

func TestRunDetectsMissingOutput(t *testing.T) {
	s := step.NewFunc(newBase(t, "render"), func(ctx context.Context, _ step.Inputs, output string) (string, error) {
		return output, nil
	})

	_, err := step.Run(context.Background(), s, nil)
	var execErr *step.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if execErr.Step != "render" || execErr.Path != s.OutputPath() {
		t.Fatalf("unexpected error fields: %+v", execErr)
	}
	if !errors.Is(err, services.ErrExecution) {
		t.Fatalf("expected ErrExecution marker, got %v", err)
	}
}

func TestRunPropagatesExecuteError(t *testing.T) {
	boom := errors.New("boom")
	s := step.NewFunc(newBase(t, "script"), func(context.Context, step.Inputs, string) (string, error) {
		return "", boom
	})

	if _, err := step.Run(context.Background(), s, nil); !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
}

func TestOutputPathIsDeterministic(t *testing.T) {
	base := step.Base{StepName: "audio", RunID: "r1", RunDir: "/data/runs", OutputFile: "audio.wav"}
	if got := base.OutputPath(); got != filepath.Join("/data/runs", "r1", "audio.wav") {
		t.Fatalf("unexpected output path %q", got)
	}
	if base.OutputPath() != base.OutputPath() {
		t.Fatal("output path changed between calls")
	}
	if !base.Required() {
		t.Fatal("steps are required unless marked optional")
	}
	base.Optional = true
	if base.Required() {
		t.Fatal("optional step reported required")
	}
}

func TestInputsRequire(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "news.json")
	writeOutput(t, present)

	inputs := step.Inputs{
		"collect": present,
		"stale":   filepath.Join(dir, "gone.json"),
	}

	got, err := inputs.Require("script", "collect")
	if err != nil || got != present {
		t.Fatalf("Require(collect) = %q, %v", got, err)
	}

	for _, name := range []string{"stale", "unknown"} {
		_, err := inputs.Require("script", name)
		var inputErr *step.InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("%s: expected InputError, got %v", name, err)
		}
		if inputErr.Step != "script" || inputErr.Input != name {
			t.Fatalf("%s: unexpected fields %+v", name, inputErr)
		}
		if !errors.Is(err, services.ErrInput) {
			t.Fatalf("%s: expected ErrInput marker", name)
		}
	}
}

func TestInputsClone(t *testing.T) {
	orig := step.Inputs{"a": "/a"}
	clone := orig.Clone()
	clone["b"] = "/b"
	if _, ok := orig["b"]; ok {
		t.Fatal("clone shares storage with original")
	}
	if got := step.Inputs(nil).Clone(); got == nil {
		t.Fatal("clone of nil should be usable")
	}
}
