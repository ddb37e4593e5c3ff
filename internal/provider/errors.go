package provider

import (
	"fmt"
	"strings"

	"newsreel/internal/services"
)

// AllFailedError reports that no provider in a chain produced a result.
type AllFailedError struct {
	// Names lists every provider in attempt order.
	Names []string
	// Errors holds the failure of each provider that was attempted.
	Errors map[string]error
	// Skipped lists providers that reported themselves unavailable.
	Skipped []string

	order []string
}

func (e *AllFailedError) record(name string, err error) {
	if _, seen := e.Errors[name]; !seen {
		e.order = append(e.order, name)
	}
	e.Errors[name] = err
}

func (e *AllFailedError) Error() string {
	if len(e.Names) == 0 {
		return "all providers failed: no providers configured"
	}
	parts := make([]string, 0, len(e.Names))
	for _, name := range e.attempted() {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Errors[name]))
	}
	for _, name := range e.Skipped {
		parts = append(parts, name+": unavailable")
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the exhaustion marker and each provider error.
func (e *AllFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors)+1)
	errs = append(errs, services.ErrProvidersExhausted)
	for _, name := range e.attempted() {
		errs = append(errs, e.Errors[name])
	}
	return errs
}

func (e *AllFailedError) attempted() []string {
	if len(e.order) == len(e.Errors) {
		return e.order
	}
	// Built outside Execute; follow Names.
	names := make([]string, 0, len(e.Errors))
	for _, name := range e.Names {
		if _, ok := e.Errors[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
