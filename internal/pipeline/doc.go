// Package pipeline builds runnable steps from configuration.
//
// Each configured step becomes a CommandStep backed by a provider chain of
// CommandProviders. A provider runs an external command whose arguments may
// reference ${run_id}, ${run_dir}, ${output} and ${input:<step>}; it is
// available when its binary is on PATH and its required environment variables
// are set. Definitions come from the main config file or a standalone TOML or
// YAML pipeline file.
package pipeline
