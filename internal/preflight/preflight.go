package preflight

import (
	"context"
	"path/filepath"

	"newsreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config and
// resolved steps. Directories are expected to exist already.
func RunAll(ctx context.Context, cfg *config.Config, steps []config.StepDefinition) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Run directory", cfg.Paths.RunDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.State.Backend == config.StateBackendSQLite {
		results = append(results, CheckDirectoryAccess("State database directory", filepath.Dir(cfg.State.SQLitePath)))
	}
	if cfg.Metrics.Enabled {
		results = append(results, CheckDirectoryAccess("Metrics directory", cfg.Metrics.TextfileDir))
	}
	if cfg.Notifications.NtfyTopic != "" {
		result := CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
		result.Optional = true
		results = append(results, result)
	}

	results = append(results, CheckSteps(steps)...)
	return results
}

// Failed reports whether any non-optional check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
