package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInput              = errors.New("input error")
	ErrExecution          = errors.New("execution error")
	ErrProvidersExhausted = errors.New("all providers failed")
	ErrExternalTool       = errors.New("external tool error")
	ErrConfiguration      = errors.New("configuration error")
	ErrCheckpoint         = errors.New("checkpoint error")
	ErrFatal              = errors.New("fatal error")
	ErrUnexpected         = errors.New("unexpected error")
)

// markers is ordered from most to least specific for Details classification.
var markers = []struct {
	err  error
	kind Kind
}{
	{ErrFatal, KindFatal},
	{ErrUnexpected, KindUnexpected},
	{ErrCheckpoint, KindCheckpoint},
	{ErrInput, KindInput},
	{ErrExecution, KindExecution},
	{ErrProvidersExhausted, KindProvidersExhausted},
	{ErrConfiguration, KindConfiguration},
	{ErrExternalTool, KindExternalTool},
}

// Kind names an error class for structured logging.
type Kind string

const (
	KindInput              Kind = "input"
	KindExecution          Kind = "execution"
	KindProvidersExhausted Kind = "providers_exhausted"
	KindExternalTool       Kind = "external_tool"
	KindConfiguration      Kind = "configuration"
	KindCheckpoint         Kind = "checkpoint"
	KindFatal              Kind = "fatal"
	KindUnexpected         Kind = "unexpected"
	KindUnknown            Kind = "unknown"
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the structured view of a wrapped error used by failure logging.
type ErrorDetails struct {
	Kind    Kind
	Message string
	Hint    string
	Cause   error
}

// Details classifies err against the sentinel markers and returns a
// log-friendly summary. A nil error yields an empty ErrorDetails.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{
		Kind:    KindUnknown,
		Message: strings.TrimSpace(err.Error()),
		Cause:   errors.Unwrap(err),
	}
	for _, m := range markers {
		if errors.Is(err, m.err) {
			details.Kind = m.kind
			break
		}
	}
	details.Hint = hintFor(details.Kind)
	return details
}

// IsFatal reports whether err belongs to a class that must end the run as
// failed rather than partial.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal) || errors.Is(err, ErrUnexpected) || errors.Is(err, ErrCheckpoint)
}

func hintFor(kind Kind) string {
	switch kind {
	case KindInput:
		return "check that upstream steps produced their outputs"
	case KindExecution:
		return "step reported success without writing its output; inspect the step implementation"
	case KindProvidersExhausted:
		return "check provider credentials and availability with 'newsreel check'"
	case KindConfiguration:
		return "run 'newsreel config validate'"
	case KindExternalTool:
		return "inspect the external command output in the log"
	case KindCheckpoint:
		return "check run directory permissions and free space"
	case KindFatal, KindUnexpected:
		return "fix the cause and re-run with the same run id to resume"
	default:
		return "check logs for details"
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "step failure"
	}
	return strings.Join(parts, ": ")
}
