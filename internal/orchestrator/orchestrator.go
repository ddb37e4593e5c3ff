package orchestrator

import (
	"log/slog"
	"slices"
	"time"

	"newsreel/internal/logging"
	"newsreel/internal/runstate"
	"newsreel/internal/step"
)

// Orchestrator drives an ordered list of steps for one run id.
type Orchestrator struct {
	runID   string
	baseDir string
	steps   []step.Step
	store   runstate.Store
	logger  *slog.Logger
	tracker Tracker
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore overrides the default file store rooted at the base directory.
func WithStore(store runstate.Store) Option {
	return func(o *Orchestrator) {
		if store != nil {
			o.store = store
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracker adds a tracker. Repeated calls fan out to all of them.
func WithTracker(tracker Tracker) Option {
	return func(o *Orchestrator) {
		if tracker == nil {
			return
		}
		if existing, ok := o.tracker.(Trackers); ok {
			o.tracker = append(existing, tracker)
			return
		}
		if _, nop := o.tracker.(NopTracker); nop {
			o.tracker = tracker
			return
		}
		o.tracker = Trackers{o.tracker, tracker}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New builds an orchestrator. Steps run in the given order.
func New(runID string, steps []step.Step, baseDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runID:   runID,
		baseDir: baseDir,
		steps:   slices.Clone(steps),
		logger:  logging.NewNop(),
		tracker: NopTracker{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = runstate.NewFileStore(baseDir)
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o
}

// RunID returns the run identifier.
func (o *Orchestrator) RunID() string { return o.runID }

// StepNames lists the steps in execution order.
func (o *Orchestrator) StepNames() []string {
	names := make([]string, 0, len(o.steps))
	for _, s := range o.steps {
		names = append(names, s.Name())
	}
	return names
}
