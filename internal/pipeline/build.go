package pipeline

import (
	"fmt"
	"log/slog"
	"slices"

	"newsreel/internal/config"
	"newsreel/internal/provider"
	"newsreel/internal/services"
	"newsreel/internal/step"
)

// Build turns step definitions into runnable steps for one run. Every
// ${input:<step>} reference must name an earlier step.
func Build(defs []config.StepDefinition, runID, baseDir string, logger *slog.Logger) ([]step.Step, error) {
	config.NormalizeSteps(defs)
	if err := config.ValidateSteps(defs); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "build pipeline", "invalid steps", err)
	}
	if err := checkReferences(defs); err != nil {
		return nil, err
	}

	steps := make([]step.Step, 0, len(defs))
	for _, def := range defs {
		providers := make([]provider.Provider[Request, string], 0, len(def.Providers))
		var inputs []string
		for _, pdef := range def.Providers {
			providers = append(providers, NewCommandProvider(def.Name, pdef, logger))
			refs, _ := placeholderInputs(pdef.Args)
			for _, ref := range refs {
				if !slices.Contains(inputs, ref) {
					inputs = append(inputs, ref)
				}
			}
		}
		base := step.Base{
			StepName:   def.Name,
			RunID:      runID,
			RunDir:     baseDir,
			OutputFile: def.Output,
			Optional:   !def.IsRequired(),
		}
		steps = append(steps, NewCommandStep(base, inputs, providers, logger))
	}
	return steps, nil
}

func checkReferences(defs []config.StepDefinition) error {
	earlier := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		for _, pdef := range def.Providers {
			refs, unknown := placeholderInputs(pdef.Args)
			if unknown != "" {
				return services.Wrap(services.ErrConfiguration, def.Name, pdef.Name,
					fmt.Sprintf("unknown placeholder ${%s}", unknown), nil)
			}
			for _, ref := range refs {
				if _, ok := earlier[ref]; !ok {
					return services.Wrap(services.ErrConfiguration, def.Name, pdef.Name,
						fmt.Sprintf("${input:%s} does not name an earlier step", ref), nil)
				}
			}
		}
		earlier[def.Name] = struct{}{}
	}
	return nil
}
