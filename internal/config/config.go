package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"newsreel/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RunDir string `toml:"run_dir"`
	LogDir string `toml:"log_dir"`
}

// State selects the checkpoint backend.
type State struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy run summaries.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnSuccess      bool   `toml:"on_success"`
	OnFailure      bool   `toml:"on_failure"`
}

// Metrics contains configuration for the Prometheus textfile exporter.
type Metrics struct {
	Enabled     bool   `toml:"enabled"`
	TextfileDir string `toml:"textfile_dir"`
}

// ProviderDefinition describes one backend able to produce a step's output.
type ProviderDefinition struct {
	Name              string   `toml:"name" yaml:"name"`
	Priority          int      `toml:"priority" yaml:"priority"`
	Command           string   `toml:"command" yaml:"command"`
	Args              []string `toml:"args" yaml:"args"`
	RequiresEnv       []string `toml:"requires_env" yaml:"requires_env"`
	Retries           int      `toml:"retries" yaml:"retries"`
	RetryDelaySeconds int      `toml:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	TimeoutSeconds    int      `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// StepDefinition describes one pipeline step. Required defaults to true when
// omitted.
type StepDefinition struct {
	Name      string               `toml:"name" yaml:"name"`
	Output    string               `toml:"output" yaml:"output"`
	Required  *bool                `toml:"required" yaml:"required"`
	Providers []ProviderDefinition `toml:"providers" yaml:"providers"`
}

// IsRequired reports the effective required flag.
func (s StepDefinition) IsRequired() bool {
	return s.Required == nil || *s.Required
}

// Pipeline holds the ordered step list, inline or from an external file.
type Pipeline struct {
	Definition string           `toml:"definition"`
	Steps      []StepDefinition `toml:"steps"`
}

// Config encapsulates all configuration values for newsreel.
//
// Configuration sections by subsystem:
//   - Paths: run and log directories
//   - State: checkpoint backend (file or sqlite)
//   - Logging: log format and level
//   - Notifications: ntfy run summaries
//   - Metrics: Prometheus textfile output
//   - Pipeline: the ordered steps and their providers
type Config struct {
	Paths         Paths         `toml:"paths"`
	State         State         `toml:"state"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Pipeline      Pipeline      `toml:"pipeline"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("newsreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the run and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RunDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.TextfileDir) != "" {
		if err := os.MkdirAll(c.Metrics.TextfileDir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory %q: %w", c.Metrics.TextfileDir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path. An existing file is
// only replaced when overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("check config path: %w", err)
		}
	}
	if err := fileutil.WriteAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
