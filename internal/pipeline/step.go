package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"newsreel/internal/provider"
	"newsreel/internal/step"
)

// CommandStep produces its output through a chain of command providers.
type CommandStep struct {
	step.Base
	inputs []string
	chain  *provider.Chain[Request, string]
}

// NewCommandStep wires a step to its providers.
func NewCommandStep(base step.Base, inputs []string, providers []provider.Provider[Request, string], logger *slog.Logger) *CommandStep {
	return &CommandStep{
		Base:   base,
		inputs: inputs,
		chain:  provider.NewChain(providers...).WithLogger(logger),
	}
}

// Inputs lists the upstream steps this step reads.
func (s *CommandStep) Inputs() []string { return s.inputs }

func (s *CommandStep) Execute(ctx context.Context, inputs step.Inputs) (string, error) {
	for _, name := range s.inputs {
		if _, err := inputs.Require(s.Name(), name); err != nil {
			return "", err
		}
	}
	output := s.OutputPath()
	return s.chain.Execute(ctx, Request{
		Step:   s.Name(),
		RunID:  s.RunID,
		RunDir: filepath.Dir(output),
		Output: output,
		Inputs: inputs,
	})
}
