package pipeline

import (
	"fmt"
	"os"
	"strings"

	"newsreel/internal/step"
)

const inputPrefix = "input:"

// Request carries the run context a command provider needs.
type Request struct {
	Step   string
	RunID  string
	RunDir string
	Output string
	Inputs step.Inputs
}

// literalDollar is what os.Expand passes for "$$"; it expands to a single "$".
const literalDollar = "$"

// expandArgs substitutes ${run_id}, ${run_dir}, ${output} and
// ${input:<step>} in args. "$$" yields a literal "$".
func expandArgs(args []string, req Request) ([]string, error) {
	var expandErr error
	mapping := func(name string) string {
		switch {
		case name == literalDollar:
			return literalDollar
		case name == "run_id":
			return req.RunID
		case name == "run_dir":
			return req.RunDir
		case name == "output":
			return req.Output
		case strings.HasPrefix(name, inputPrefix):
			upstream := strings.TrimPrefix(name, inputPrefix)
			path, err := req.Inputs.Require(req.Step, upstream)
			if err != nil && expandErr == nil {
				expandErr = err
			}
			return path
		default:
			if expandErr == nil {
				expandErr = fmt.Errorf("unknown placeholder ${%s}", name)
			}
			return ""
		}
	}

	out := make([]string, 0, len(args))
	for _, arg := range args {
		out = append(out, os.Expand(arg, mapping))
	}
	if expandErr != nil {
		return nil, expandErr
	}
	return out, nil
}

// placeholderInputs returns the upstream steps referenced by args, and the
// first unknown placeholder name if any.
func placeholderInputs(args []string) (inputs []string, unknown string) {
	seen := map[string]struct{}{}
	for _, arg := range args {
		os.Expand(arg, func(name string) string {
			switch {
			case name == literalDollar || name == "run_id" || name == "run_dir" || name == "output":
			case strings.HasPrefix(name, inputPrefix):
				upstream := strings.TrimPrefix(name, inputPrefix)
				if _, ok := seen[upstream]; !ok {
					seen[upstream] = struct{}{}
					inputs = append(inputs, upstream)
				}
			default:
				if unknown == "" {
					unknown = name
				}
			}
			return ""
		})
	}
	return inputs, unknown
}
