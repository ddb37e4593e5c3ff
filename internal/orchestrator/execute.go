package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsreel/internal/logging"
	"newsreel/internal/runstate"
	"newsreel/internal/services"
	"newsreel/internal/step"
)

// Execute runs the pipeline to a terminal outcome. Completed steps from earlier
// attempts are skipped, every transition is persisted before the next step
// starts, and failures are contained here rather than returned.
//
// The error is non-nil only when the run record could not be read or written,
// or when ctx was cancelled between steps. The Result is populated in every
// case.
func (o *Orchestrator) Execute(ctx context.Context) (Result, error) {
	started := o.now()
	ctx = services.WithRunID(ctx, o.runID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, o.logger)
	// Persistence must land even when ctx is cancelled mid-step.
	persistCtx := context.WithoutCancel(ctx)

	result := Result{
		Status:     StatusFailed,
		RunID:      o.runID,
		Outputs:    map[string]string{},
		Errors:     []string{},
		Checkpoint: o.store.Location(o.runID),
	}

	if err := o.validateSteps(); err != nil {
		result.Errors = append(result.Errors, err.Error())
		o.logFailure(logger, "invalid step list", err)
		return o.finish(ctx, result, started, err)
	}

	state, resumed, err := runstate.LoadOrCreate(ctx, o.store, o.runID, started)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		o.logFailure(logger, "run state unavailable", err)
		return o.finish(ctx, result, started, err)
	}
	cp := runstate.NewCheckpoint(o.store, state, o.now)
	if err := cp.Begin(persistCtx); err != nil {
		return o.abort(ctx, logger, cp, result, started, "", err)
	}

	attempt := cp.Snapshot().Attempts
	result.Resumed = resumed
	result.Attempt = attempt
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Bool("resumed", resumed),
		logging.Int("attempt", attempt),
		logging.Int("steps", len(o.steps)),
		logging.String("checkpoint", cp.Location()),
	)
	if err := o.tracker.Open(ctx, RunInfo{
		RunID:      o.runID,
		Checkpoint: cp.Location(),
		Steps:      o.StepNames(),
		Resumed:    resumed,
		Attempt:    attempt,
		StartedAt:  started,
	}); err != nil {
		o.trackerWarning(logger, "open", err)
	}

	for _, s := range o.steps {
		if err := ctx.Err(); err != nil {
			logger.Warn("run interrupted",
				logging.String(logging.FieldEventType, "run_interrupted"),
				logging.String(logging.FieldErrorHint, "re-run with the same run id to resume"),
				logging.String(logging.FieldImpact, "remaining steps were not started"),
				logging.Error(err),
			)
			return o.complete(ctx, cp, result, started, err)
		}

		name := s.Name()
		stepCtx := services.WithStep(ctx, name)
		stepLogger := logging.WithContext(stepCtx, o.logger)

		if cp.IsCompleted(name) {
			cp.Backfill(name)
			output := cp.Outputs()[name]
			stepLogger.Info("step already completed, skipping",
				logging.String(logging.FieldEventType, "step_skipped"),
				logging.String("output", output),
			)
			o.stepFinished(stepCtx, stepLogger, StepOutcome{Step: name, State: StepSkipped, Required: s.Required(), Output: output})
			continue
		}

		stepLogger.Info("step started",
			logging.String(logging.FieldEventType, "step_start"),
			logging.Bool("required", s.Required()),
		)
		stepStart := o.now()
		output, stepErr := o.runStep(stepCtx, s, step.Inputs(cp.Outputs()))
		elapsed := o.now().Sub(stepStart)

		if stepErr != nil && ctx.Err() != nil && isContextErr(stepErr) {
			stepLogger.Warn("step interrupted",
				logging.String(logging.FieldEventType, "step_interrupted"),
				logging.String(logging.FieldErrorHint, "re-run with the same run id to resume"),
				logging.String(logging.FieldImpact, "step will be re-attempted on resume"),
				logging.Error(stepErr),
			)
			return o.complete(ctx, cp, result, started, ctx.Err())
		}

		if stepErr == nil {
			if err := cp.Complete(persistCtx, name, output); err != nil {
				return o.abort(ctx, stepLogger, cp, result, started, name, err)
			}
			stepLogger.Info("step completed",
				logging.String(logging.FieldEventType, "step_complete"),
				logging.String("output", output),
				logging.Duration("step_duration", elapsed),
			)
			o.stepFinished(stepCtx, stepLogger, StepOutcome{Step: name, State: StepSucceeded, Required: s.Required(), Output: output, Duration: elapsed})
			continue
		}

		o.stepFinished(stepCtx, stepLogger, StepOutcome{Step: name, State: StepFailed, Required: s.Required(), Err: stepErr, Duration: elapsed})

		if !s.Required() {
			logging.WarnWithContext(stepLogger, "optional step failed, continuing", "step_failure_optional",
				logging.Error(stepErr),
				logging.String(logging.FieldErrorKind, string(services.Details(stepErr).Kind)),
				logging.String(logging.FieldErrorHint, services.Details(stepErr).Hint),
				logging.String(logging.FieldImpact, "run continues without this output"),
			)
			if err := cp.RecordError(persistCtx, name, stepErr.Error()); err != nil {
				return o.abort(ctx, stepLogger, cp, result, started, name, err)
			}
			continue
		}

		o.logFailure(stepLogger, "required step failed", stepErr)
		var persistErr error
		if services.IsFatal(stepErr) {
			persistErr = cp.Fail(persistCtx, name, stepErr.Error())
		} else {
			persistErr = cp.Contain(persistCtx, name, stepErr.Error())
		}
		if persistErr != nil {
			return o.abort(ctx, stepLogger, cp, result, started, name, persistErr)
		}
		return o.complete(ctx, cp, result, started, nil)
	}

	if err := cp.Succeed(persistCtx); err != nil {
		return o.abort(ctx, logger, cp, result, started, "", err)
	}
	return o.complete(ctx, cp, result, started, nil)
}

func (o *Orchestrator) runStep(ctx context.Context, s step.Step, inputs step.Inputs) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrUnexpected, "", "", fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return step.Run(ctx, s, inputs)
}

// abort handles a checkpoint write failure. It tries once to record the run
// as failed and reports the original write error.
func (o *Orchestrator) abort(ctx context.Context, logger *slog.Logger, cp *runstate.Checkpoint, result Result, started time.Time, stepName string, cause error) (Result, error) {
	o.logFailure(logger, "checkpoint write failed", cause)
	if err := cp.Fail(context.WithoutCancel(ctx), stepName, cause.Error()); err != nil && !errors.Is(err, runstate.ErrTerminal) {
		logger.Debug("recording checkpoint failure also failed", logging.Error(err))
	}
	snapshot := cp.Snapshot()
	result.Status = StatusFailed
	result.Outputs = snapshot.Outputs
	result.Errors = snapshot.Errors
	if len(result.Errors) == 0 || result.Errors[len(result.Errors)-1] != runstate.FormatError(stepName, cause.Error()) {
		result.Errors = append(result.Errors, runstate.FormatError(stepName, cause.Error()))
	}
	result.Attempt = snapshot.Attempts
	return o.finish(ctx, result, started, cause)
}

func (o *Orchestrator) complete(ctx context.Context, cp *runstate.Checkpoint, result Result, started time.Time, err error) (Result, error) {
	snapshot := cp.Snapshot()
	result.Status = statusFromState(snapshot.Status)
	result.Outputs = snapshot.Outputs
	result.Errors = snapshot.Errors
	result.Attempt = snapshot.Attempts
	return o.finish(ctx, result, started, err)
}

func (o *Orchestrator) finish(ctx context.Context, result Result, started time.Time, err error) (Result, error) {
	result.Duration = o.now().Sub(started)
	result.DurationSeconds = result.Duration.Seconds()
	logger := logging.WithContext(ctx, o.logger)

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("status", string(result.Status)),
		logging.Int("outputs", len(result.Outputs)),
		logging.Int("errors", len(result.Errors)),
		logging.Duration("run_duration", result.Duration),
	)
	if trackErr := o.tracker.Finalize(context.WithoutCancel(ctx), result); trackErr != nil {
		o.trackerWarning(logger, "finalize", trackErr)
	}
	return result, err
}

func (o *Orchestrator) stepFinished(ctx context.Context, logger *slog.Logger, outcome StepOutcome) {
	if err := o.tracker.StepFinished(ctx, outcome); err != nil {
		o.trackerWarning(logger, "step_finished", err)
	}
}

func (o *Orchestrator) validateSteps() error {
	seen := make(map[string]struct{}, len(o.steps))
	for i, s := range o.steps {
		if s == nil {
			return services.Wrap(services.ErrConfiguration, "", "validate", fmt.Sprintf("step %d is nil", i), nil)
		}
		name := s.Name()
		if name == "" {
			return services.Wrap(services.ErrConfiguration, "", "validate", fmt.Sprintf("step %d has no name", i), nil)
		}
		if _, dup := seen[name]; dup {
			return services.Wrap(services.ErrConfiguration, name, "validate", "duplicate step name", nil)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (o *Orchestrator) logFailure(logger *slog.Logger, msg string, err error) {
	details := services.Details(err)
	logging.ErrorWithContext(logger, msg, "step_failure",
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(err),
	)
}

func (o *Orchestrator) trackerWarning(logger *slog.Logger, phase string, err error) {
	logging.WarnWithContext(logger, "tracker failed", "tracker_error",
		logging.String("phase", phase),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check tracker configuration"),
		logging.String(logging.FieldImpact, "run outcome unaffected"),
	)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
