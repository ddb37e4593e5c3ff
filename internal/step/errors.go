package step

import (
	"fmt"

	"newsreel/internal/services"
)

// InputError reports a missing or unusable upstream input.
type InputError struct {
	Step  string
	Input string
	Path  string
	Err   error
}

func (e *InputError) Error() string {
	switch {
	case e.Path == "":
		return fmt.Sprintf("step %s: input %q has not been produced", e.Step, e.Input)
	case e.Err != nil:
		return fmt.Sprintf("step %s: input %q at %s is unusable: %v", e.Step, e.Input, e.Path, e.Err)
	default:
		return fmt.Sprintf("step %s: input %q missing at %s", e.Step, e.Input, e.Path)
	}
}

func (e *InputError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrInput}
	}
	return []error{services.ErrInput, e.Err}
}

// ExecutionError reports a step that returned success without leaving its
// artifact on disk.
type ExecutionError struct {
	Step string
	Path string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %s did not produce output at %s", e.Step, e.Path)
}

func (e *ExecutionError) Unwrap() error { return services.ErrExecution }
