package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"newsreel/internal/fileutil"
	"newsreel/internal/logging"
	"newsreel/internal/orchestrator"
	"newsreel/internal/runstate"
)

// TextfileName is the node_exporter textfile written after each run.
const TextfileName = "newsreel.prom"

const namespace = "newsreel"

// Tracker records per-run Prometheus metrics and compares each step output
// with the same step's output from the previous completed run.
type Tracker struct {
	dir    string
	store  runstate.Store
	logger *slog.Logger

	registry      *prometheus.Registry
	runInfo       *prometheus.GaugeVec
	runDuration   prometheus.Gauge
	runErrors     prometheus.Gauge
	runOutputs    prometheus.Gauge
	stepDuration  *prometheus.GaugeVec
	stepState     *prometheus.GaugeVec
	outputBytes   *prometheus.GaugeVec
	outputChanged *prometheus.GaugeVec

	previous *runstate.State
}

// NewTracker writes textfiles into dir. store is consulted for the previous
// completed run; nil disables diffing.
func NewTracker(dir string, store runstate.Store, logger *slog.Logger) *Tracker {
	return &Tracker{
		dir:    dir,
		store:  store,
		logger: logging.NewComponentLogger(logger, "metrics"),
	}
}

// Path is the textfile location.
func (t *Tracker) Path() string { return filepath.Join(t.dir, TextfileName) }

func (t *Tracker) Open(ctx context.Context, info orchestrator.RunInfo) error {
	t.reset()
	t.runInfo.WithLabelValues(info.RunID, fmt.Sprint(info.Attempt)).Set(statusValue(orchestrator.StatusInterrupted))

	if t.store == nil {
		return nil
	}
	prev, found, err := runstate.PreviousCompleted(ctx, t.store, info.RunID)
	if err != nil {
		return fmt.Errorf("find previous run: %w", err)
	}
	if found {
		t.previous = prev
		t.logger.Debug("comparing outputs with previous run",
			logging.String(logging.FieldRunID, info.RunID),
			logging.String("previous_run_id", prev.RunID),
		)
	}
	return nil
}

func (t *Tracker) StepFinished(_ context.Context, outcome orchestrator.StepOutcome) error {
	if t.registry == nil {
		return nil
	}
	t.stepDuration.WithLabelValues(outcome.Step).Set(outcome.Duration.Seconds())
	for _, state := range []orchestrator.StepState{orchestrator.StepSucceeded, orchestrator.StepSkipped, orchestrator.StepFailed} {
		value := 0.0
		if state == outcome.State {
			value = 1
		}
		t.stepState.WithLabelValues(outcome.Step, string(state)).Set(value)
	}
	if outcome.State != orchestrator.StepSucceeded || outcome.Output == "" {
		return nil
	}

	info, err := os.Stat(outcome.Output)
	if err != nil {
		return fmt.Errorf("stat output of %s: %w", outcome.Step, err)
	}
	t.outputBytes.WithLabelValues(outcome.Step).Set(float64(info.Size()))
	return t.diff(outcome)
}

func (t *Tracker) Finalize(_ context.Context, result orchestrator.Result) error {
	if t.registry == nil {
		return nil
	}
	t.runDuration.Set(result.Duration.Seconds())
	t.runErrors.Set(float64(len(result.Errors)))
	t.runOutputs.Set(float64(len(result.Outputs)))
	t.runInfo.DeletePartialMatch(prometheus.Labels{"run_id": result.RunID})
	t.runInfo.WithLabelValues(result.RunID, fmt.Sprint(result.Attempt)).Set(statusValue(result.Status))

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(t.Path(), t.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	t.logger.Debug("metrics written", logging.String("path", t.Path()))
	return nil
}

func (t *Tracker) diff(outcome orchestrator.StepOutcome) error {
	if t.previous == nil {
		return nil
	}
	prevPath, ok := t.previous.Outputs[outcome.Step]
	if !ok {
		return nil
	}
	prevHash, err := fileutil.HashFile(prevPath)
	if err != nil {
		// Previous artifacts may have been cleaned up.
		t.logger.Debug("previous output unavailable",
			logging.String(logging.FieldStep, outcome.Step),
			logging.Error(err),
		)
		return nil
	}
	curHash, err := fileutil.HashFile(outcome.Output)
	if err != nil {
		return err
	}
	changed := 0.0
	if curHash != prevHash {
		changed = 1
	}
	t.outputChanged.WithLabelValues(outcome.Step, t.previous.RunID).Set(changed)
	return nil
}

func (t *Tracker) reset() {
	t.previous = nil
	t.registry = prometheus.NewRegistry()

	t.runInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_status",
		Help:      "Run outcome: 1 success, 0.5 partial, 0 failed, -1 interrupted or running.",
	}, []string{"run_id", "attempt"})
	t.runDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "run_duration_seconds", Help: "Wall time of the last Execute call.",
	})
	t.runErrors = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "run_errors", Help: "Errors recorded for the run.",
	})
	t.runOutputs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "run_outputs", Help: "Outputs produced by the run.",
	})
	t.stepDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "step_duration_seconds", Help: "Execution time of each step.",
	}, []string{"step"})
	t.stepState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "step_state", Help: "1 for the state each step finished in.",
	}, []string{"step", "state"})
	t.outputBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "step_output_bytes", Help: "Size of each step output.",
	}, []string{"step"})
	t.outputChanged = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "step_output_changed", Help: "1 when a step output differs from the previous completed run.",
	}, []string{"step", "previous_run_id"})

	t.registry.MustRegister(
		t.runInfo, t.runDuration, t.runErrors, t.runOutputs,
		t.stepDuration, t.stepState, t.outputBytes, t.outputChanged,
	)
}

func statusValue(status orchestrator.Status) float64 {
	switch status {
	case orchestrator.StatusSuccess:
		return 1
	case orchestrator.StatusPartial:
		return 0.5
	case orchestrator.StatusFailed:
		return 0
	default:
		return -1
	}
}
