package notifications

import (
	"context"
	"errors"

	"newsreel/internal/config"
	"newsreel/internal/orchestrator"
)

// Tracker posts a run summary when the orchestrator finalizes a run.
type Tracker struct {
	svc       Service
	onSuccess bool
	onFailure bool
	steps     int
	opened    bool
}

// NewTracker adapts svc to the orchestrator's tracker interface.
func NewTracker(svc Service, cfg config.Notifications) *Tracker {
	return &Tracker{svc: svc, onSuccess: cfg.OnSuccess, onFailure: cfg.OnFailure}
}

func (t *Tracker) Open(_ context.Context, info orchestrator.RunInfo) error {
	t.steps = len(info.Steps)
	t.opened = true
	return nil
}

func (t *Tracker) StepFinished(context.Context, orchestrator.StepOutcome) error { return nil }

// Finalize sends one summary. Interrupted runs are not reported; the operator
// stopped them. A run that failed before Open (unreadable or corrupt run
// record) is reported as an error alert instead of a run summary.
func (t *Tracker) Finalize(ctx context.Context, result orchestrator.Result) error {
	if t.svc == nil {
		return nil
	}
	if !t.opened && result.Status == orchestrator.StatusFailed {
		if !t.onFailure {
			return nil
		}
		cause := errors.New("run state unavailable")
		if n := len(result.Errors); n > 0 {
			cause = errors.New(result.Errors[n-1])
		}
		return t.svc.NotifyError(ctx, cause, "run "+result.RunID)
	}
	summary := RunSummary{
		RunID:    result.RunID,
		Status:   string(result.Status),
		Outputs:  len(result.Outputs),
		Steps:    t.steps,
		Errors:   result.Errors,
		Duration: result.Duration,
	}
	switch result.Status {
	case orchestrator.StatusSuccess:
		if t.onSuccess {
			return t.svc.NotifyRunCompleted(ctx, summary)
		}
	case orchestrator.StatusPartial, orchestrator.StatusFailed:
		if t.onFailure {
			return t.svc.NotifyRunFailed(ctx, summary)
		}
	}
	return nil
}
