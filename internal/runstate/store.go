package runstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"newsreel/internal/config"
)

// ErrCorruptCheckpoint marks a persisted record that exists but cannot be
// decoded. It is never treated as "no prior progress".
var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

// ErrInvalidRunID rejects run ids that cannot name a directory.
var ErrInvalidRunID = errors.New("invalid run id")

// Store persists run records keyed by run id.
type Store interface {
	// Load returns the record for runID. found is false when none exists.
	Load(ctx context.Context, runID string) (state *State, found bool, err error)
	// Save writes the full record.
	Save(ctx context.Context, state *State) error
	// List returns summaries, newest first.
	List(ctx context.Context) ([]Summary, error)
	// Location describes where runID's record lives.
	Location(runID string) string
	Close() error
}

// Summary is the listing view of a run.
type Summary struct {
	RunID          string     `json:"run_id"`
	Status         Status     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CompletedSteps int        `json:"completed_steps"`
	ErrorCount     int        `json:"error_count"`
	Attempts       int        `json:"attempts"`
	Corrupt        bool       `json:"corrupt,omitempty"`
}

// Summarize builds the listing view of a record.
func Summarize(s *State) Summary {
	return Summary{
		RunID:          s.RunID,
		Status:         s.Status,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		CompletedSteps: len(s.CompletedSteps),
		ErrorCount:     len(s.Errors),
		Attempts:       s.Attempts,
	}
}

// Open returns the store selected by configuration.
func Open(cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	switch cfg.State.Backend {
	case config.StateBackendSQLite:
		return OpenSQLite(cfg.State.SQLitePath)
	case config.StateBackendFile, "":
		return NewFileStore(cfg.Paths.RunDir), nil
	default:
		return nil, fmt.Errorf("unsupported state backend %q", cfg.State.Backend)
	}
}

// LoadOrCreate returns the stored record for runID or a fresh running record.
// The fresh record is not persisted.
func LoadOrCreate(ctx context.Context, store Store, runID string, now time.Time) (*State, bool, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, false, err
	}
	state, found, err := store.Load(ctx, runID)
	if err != nil {
		return nil, false, err
	}
	if found {
		return state, true, nil
	}
	return New(runID, now), false, nil
}

// PreviousCompleted returns the most recent completed run started before the
// given run.
func PreviousCompleted(ctx context.Context, store Store, current string) (*State, bool, error) {
	summaries, err := store.List(ctx)
	if err != nil {
		return nil, false, err
	}
	var cutoff time.Time
	for _, s := range summaries {
		if s.RunID == current {
			cutoff = s.StartedAt
			break
		}
	}
	for _, s := range summaries {
		if s.RunID == current || s.Corrupt || s.Status != StatusCompleted {
			continue
		}
		if !cutoff.IsZero() && !s.StartedAt.Before(cutoff) {
			continue
		}
		state, found, err := store.Load(ctx, s.RunID)
		if err != nil {
			return nil, false, err
		}
		if found {
			return state, true, nil
		}
	}
	return nil, false, nil
}

// ValidateRunID ensures a run id is usable as a single path element.
func ValidateRunID(runID string) error {
	trimmed := strings.TrimSpace(runID)
	switch {
	case trimmed == "":
		return fmt.Errorf("%w: empty", ErrInvalidRunID)
	case trimmed != runID:
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidRunID, runID)
	case runID == "." || runID == "..":
		return fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	case strings.ContainsAny(runID, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidRunID, runID)
	}
	return nil
}

func encodeState(state *State) ([]byte, error) {
	if state == nil {
		return nil, errors.New("state is nil")
	}
	if err := ValidateRunID(state.RunID); err != nil {
		return nil, err
	}
	state.normalize()
	return json.MarshalIndent(state, "", "  ")
}

func decodeState(runID, location string, data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCheckpoint, location, err)
	}
	state.normalize()
	if err := state.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCheckpoint, location, err)
	}
	if state.RunID != runID {
		return nil, fmt.Errorf("%w: %s: record belongs to run %q", ErrCorruptCheckpoint, location, state.RunID)
	}
	return &state, nil
}

func sortSummaries(summaries []Summary) {
	slices.SortStableFunc(summaries, func(a, b Summary) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(b.RunID, a.RunID)
	})
}
