package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeState(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeNotifications()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	return c.normalizePipeline()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RunDir) == "" {
		c.Paths.RunDir = defaultRunDir
	}
	if c.Paths.RunDir, err = expandPath(c.Paths.RunDir); err != nil {
		return fmt.Errorf("paths.run_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeState() error {
	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
	if c.State.Backend == "" {
		c.State.Backend = defaultStateBackend
	}
	if strings.TrimSpace(c.State.SQLitePath) == "" {
		c.State.SQLitePath = filepath.Join(c.Paths.RunDir, defaultSQLiteFileName)
	}
	var err error
	if c.State.SQLitePath, err = expandPath(c.State.SQLitePath); err != nil {
		return fmt.Errorf("state.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NEWSREEL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeMetrics() error {
	if strings.TrimSpace(c.Metrics.TextfileDir) == "" {
		c.Metrics.TextfileDir = defaultMetricsDir
	}
	var err error
	if c.Metrics.TextfileDir, err = expandPath(c.Metrics.TextfileDir); err != nil {
		return fmt.Errorf("metrics.textfile_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() error {
	var err error
	if strings.TrimSpace(c.Pipeline.Definition) != "" {
		if c.Pipeline.Definition, err = expandPath(strings.TrimSpace(c.Pipeline.Definition)); err != nil {
			return fmt.Errorf("pipeline.definition: %w", err)
		}
	}
	NormalizeSteps(c.Pipeline.Steps)
	return nil
}

// NormalizeSteps trims names and fills provider defaults in place. It is shared
// by inline config steps and externally loaded pipeline definitions.
func NormalizeSteps(steps []StepDefinition) {
	for i := range steps {
		step := &steps[i]
		step.Name = strings.TrimSpace(step.Name)
		step.Output = strings.TrimSpace(step.Output)
		for j := range step.Providers {
			p := &step.Providers[j]
			p.Name = strings.TrimSpace(p.Name)
			p.Command = strings.TrimSpace(p.Command)
			if p.Name == "" {
				p.Name = filepath.Base(p.Command)
			}
			if p.TimeoutSeconds <= 0 {
				p.TimeoutSeconds = defaultProviderTimeoutSecond
			}
			env := p.RequiresEnv[:0]
			for _, name := range p.RequiresEnv {
				if trimmed := strings.TrimSpace(name); trimmed != "" {
					env = append(env, trimmed)
				}
			}
			p.RequiresEnv = env
		}
	}
}
