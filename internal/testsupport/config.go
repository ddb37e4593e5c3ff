package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"newsreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The pipeline is empty unless WithSteps is supplied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RunDir = filepath.Join(base, "runs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.State.SQLitePath = filepath.Join(base, "runs", "runs.db")
	cfgVal.Metrics.TextfileDir = filepath.Join(base, "metrics")
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Pipeline.Steps = nil

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSteps replaces the pipeline definition.
func WithSteps(steps ...config.StepDefinition) ConfigOption {
	return func(b *configBuilder) {
		config.NormalizeSteps(steps)
		b.cfg.Pipeline.Steps = steps
	}
}

// WithSQLiteState switches the checkpoint backend to SQLite.
func WithSQLiteState() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.State.Backend = config.StateBackendSQLite
	}
}

// WithStubbedBinaries writes stub executables that exit 0 and prepends their
// directory to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			writeExecutable(b.t, b.baseDir, name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// WithScript installs an executable shell script on PATH.
func WithScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		writeExecutable(b.t, b.baseDir, name, body)
	}
}

// OutputWriterScript writes its content argument to the path following --out
// and exits 0.
const OutputWriterScript = `#!/bin/sh
out=""
content="ok"
while [ $# -gt 0 ]; do
  case "$1" in
    --out) out="$2"; shift 2 ;;
    --content) content="$2"; shift 2 ;;
    *) shift ;;
  esac
done
[ -n "$out" ] || exit 2
printf '%s' "$content" > "$out"
`

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RunDir)
}

func writeExecutable(t testing.TB, baseDir, name, body string) {
	t.Helper()
	binDir := filepath.Join(baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(binDir, name), []byte(body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	if parts := filepath.SplitList(oldPath); len(parts) > 0 && parts[0] == binDir {
		return
	}
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
