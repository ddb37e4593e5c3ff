package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsreel/internal/config"
	"newsreel/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

const writerStepsTOML = `
[[pipeline.steps]]
name = "collect"
output = "news.txt"

  [[pipeline.steps.providers]]
  name = "writer"
  command = "nr-writer"
  args = ["--out", "${output}", "--content", "news"]

[[pipeline.steps]]
name = "render"
output = "video.txt"

  [[pipeline.steps.providers]]
  name = "writer"
  command = "nr-writer"
  args = ["--in", "${input:collect}", "--out", "${output}", "--content", "video"]
`

const failingStepsTOML = `
[[pipeline.steps]]
name = "collect"
output = "news.txt"

  [[pipeline.steps.providers]]
  name = "writer"
  command = "nr-writer"
  args = ["--out", "${output}"]

[[pipeline.steps]]
name = "render"
output = "video.txt"

  [[pipeline.steps.providers]]
  name = "broken"
  command = "nr-fail"
`

func setupCLITestEnv(t *testing.T, steps string, extra string) *cliTestEnv {
	t.Helper()

	t.Setenv("NEWSREEL_NTFY_TOPIC", "")
	cfg := testsupport.NewConfig(t,
		testsupport.WithScript("nr-writer", testsupport.OutputWriterScript),
		testsupport.WithScript("nr-fail", "#!/bin/sh\necho 'render crashed' >&2\nexit 3\n"),
	)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg, extra+steps)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config, tail string) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nrun_dir = %q\nlog_dir = %q\n\n[metrics]\nenabled = true\ntextfile_dir = %q\n\n%s",
		cfg.Paths.RunDir,
		cfg.Paths.LogDir,
		cfg.Metrics.TextfileDir,
		tail,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
