package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateState(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := ValidateSteps(c.Pipeline.Steps); err != nil {
		return fmt.Errorf("pipeline.steps: %w", err)
	}
	return nil
}

func (c *Config) validateState() error {
	switch c.State.Backend {
	case StateBackendFile, StateBackendSQLite:
		return nil
	default:
		return fmt.Errorf("state.backend must be %q or %q, got %q", StateBackendFile, StateBackendSQLite, c.State.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

// ValidateSteps checks a step list for unique names, file-name outputs, and at
// least one runnable provider per step. An empty list is valid.
func ValidateSteps(steps []StepDefinition) error {
	seen := make(map[string]struct{}, len(steps))
	for idx, step := range steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: name must be set", idx+1)
		}
		if _, dup := seen[step.Name]; dup {
			return fmt.Errorf("step %q: duplicate name", step.Name)
		}
		seen[step.Name] = struct{}{}

		if step.Output == "" {
			return fmt.Errorf("step %q: output must be set", step.Name)
		}
		if strings.ContainsAny(step.Output, `/\`) || step.Output == "." || step.Output == ".." {
			return fmt.Errorf("step %q: output must be a file name, got %q", step.Name, step.Output)
		}
		if len(step.Providers) == 0 {
			return fmt.Errorf("step %q: at least one provider is required", step.Name)
		}

		providers := make(map[string]struct{}, len(step.Providers))
		for _, p := range step.Providers {
			if p.Command == "" {
				return fmt.Errorf("step %q: provider %q: command must be set", step.Name, p.Name)
			}
			if _, dup := providers[p.Name]; dup {
				return fmt.Errorf("step %q: duplicate provider %q", step.Name, p.Name)
			}
			providers[p.Name] = struct{}{}
			if p.Retries < 0 {
				return fmt.Errorf("step %q: provider %q: retries must be >= 0", step.Name, p.Name)
			}
			if p.RetryDelaySeconds < 0 {
				return fmt.Errorf("step %q: provider %q: retry_delay_seconds must be >= 0", step.Name, p.Name)
			}
		}
	}
	return nil
}
