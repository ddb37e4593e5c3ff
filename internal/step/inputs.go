package step

import (
	"maps"
	"strings"
)

// Inputs maps an upstream step name to the path of its output.
type Inputs map[string]string

// Clone returns an independent copy.
func (in Inputs) Clone() Inputs {
	if in == nil {
		return Inputs{}
	}
	return maps.Clone(in)
}

// Require returns the output path of the named upstream step, or an InputError
// when the step has not produced one or the file is gone.
func (in Inputs) Require(consumer, upstream string) (string, error) {
	path := strings.TrimSpace(in[upstream])
	if path == "" {
		return "", &InputError{Step: consumer, Input: upstream}
	}
	exists, err := pathExists(path)
	if err != nil {
		return "", &InputError{Step: consumer, Input: upstream, Path: path, Err: err}
	}
	if !exists {
		return "", &InputError{Step: consumer, Input: upstream, Path: path}
	}
	return path, nil
}
