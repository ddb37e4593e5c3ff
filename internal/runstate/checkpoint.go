package runstate

import (
	"context"
	"time"

	"newsreel/internal/services"
)

// Checkpoint binds a record to its store. Every transition mutates and saves
// in the same call; there is no way to change the record without persisting.
type Checkpoint struct {
	state *State
	store Store
	now   func() time.Time
}

// NewCheckpoint wraps state for persistence through store. A nil clock uses
// time.Now.
func NewCheckpoint(store Store, state *State, now func() time.Time) *Checkpoint {
	if now == nil {
		now = time.Now
	}
	return &Checkpoint{state: state, store: store, now: now}
}

// Snapshot returns a deep copy of the current record.
func (c *Checkpoint) Snapshot() *State { return c.state.Clone() }

// Location is where the record is persisted.
func (c *Checkpoint) Location() string { return c.store.Location(c.state.RunID) }

// IsCompleted reports whether step already succeeded.
func (c *Checkpoint) IsCompleted(step string) bool { return c.state.IsCompleted(step) }

// Outputs returns a copy of the recorded outputs.
func (c *Checkpoint) Outputs() map[string]string { return c.state.Clone().Outputs }

// Backfill fills in a missing success status for a completed step. The change
// is persisted by the next transition.
func (c *Checkpoint) Backfill(step string) { c.state.BackfillStepStatus(step) }

// Begin opens a new attempt and persists it.
func (c *Checkpoint) Begin(ctx context.Context) error {
	c.state.BeginAttempt()
	return c.save(ctx, "", "begin")
}

// Complete records a successful step.
func (c *Checkpoint) Complete(ctx context.Context, step, output string) error {
	c.state.MarkCompleted(step, output)
	return c.save(ctx, step, "complete")
}

// RecordError records an optional-step failure and keeps the run going.
func (c *Checkpoint) RecordError(ctx context.Context, step, message string) error {
	c.state.RecordStepError(step, message)
	return c.save(ctx, step, "record_error")
}

// Contain ends the attempt as partial after a required-step failure.
func (c *Checkpoint) Contain(ctx context.Context, step, message string) error {
	if err := c.state.MarkPartial(step, message, c.now()); err != nil {
		return err
	}
	return c.save(ctx, step, "contain")
}

// Fail ends the attempt as failed.
func (c *Checkpoint) Fail(ctx context.Context, step, message string) error {
	if err := c.state.MarkFailed(step, message, c.now()); err != nil {
		return err
	}
	return c.save(ctx, step, "fail")
}

// Succeed ends the attempt as completed.
func (c *Checkpoint) Succeed(ctx context.Context) error {
	if err := c.state.MarkSuccess(c.now()); err != nil {
		return err
	}
	return c.save(ctx, "", "succeed")
}

func (c *Checkpoint) save(ctx context.Context, step, operation string) error {
	if err := c.store.Save(ctx, c.state); err != nil {
		return services.Wrap(services.ErrCheckpoint, step, operation, "persist run state to "+c.Location(), err)
	}
	return nil
}
