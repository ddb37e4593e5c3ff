package step

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Step is one idempotent unit of pipeline work producing exactly one artifact.
type Step interface {
	// Name is stable across runs; it keys outputs and marks checkpoints.
	Name() string
	// OutputPath is a pure function of the run directory, run id, and step.
	OutputPath() string
	// Required steps end the run when they fail; optional failures are recorded.
	Required() bool
	// Execute performs the work and returns the path it wrote.
	Execute(ctx context.Context, inputs Inputs) (string, error)
}

// Run is the checkpoint wrapper around Execute. An existing output short-circuits
// execution; a reported output that does not exist afterwards is an
// ExecutionError.
func Run(ctx context.Context, s Step, inputs Inputs) (string, error) {
	output := s.OutputPath()
	exists, err := pathExists(output)
	if err != nil {
		return "", err
	}
	if exists {
		return output, nil
	}

	produced, err := s.Execute(ctx, inputs)
	if err != nil {
		return "", err
	}

	exists, err = pathExists(produced)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", &ExecutionError{Step: s.Name(), Path: produced}
	}
	return produced, nil
}

// OutputPath derives the artifact location for a step inside a run.
func OutputPath(runDir, runID, fileName string) string {
	return filepath.Join(runDir, runID, fileName)
}

// Base carries the identity shared by concrete steps. Embed it and supply
// Execute.
type Base struct {
	StepName   string
	RunID      string
	RunDir     string
	OutputFile string
	Optional   bool
}

func (b Base) Name() string { return b.StepName }

func (b Base) OutputPath() string { return OutputPath(b.RunDir, b.RunID, b.OutputFile) }

func (b Base) Required() bool { return !b.Optional }

// ExecuteFunc is the work function of a Func step. output is the step's
// declared OutputPath.
type ExecuteFunc func(ctx context.Context, inputs Inputs, output string) (string, error)

// Func adapts a plain function to the Step interface.
type Func struct {
	Base
	Fn ExecuteFunc
}

// NewFunc builds a Func step.
func NewFunc(base Base, fn ExecuteFunc) *Func {
	return &Func{Base: base, Fn: fn}
}

func (f *Func) Execute(ctx context.Context, inputs Inputs) (string, error) {
	if f.Fn == nil {
		return "", &ExecutionError{Step: f.Name(), Path: f.OutputPath()}
	}
	return f.Fn(ctx, inputs, f.OutputPath())
}

func pathExists(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
