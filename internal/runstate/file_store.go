package runstate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"newsreel/internal/fileutil"
)

// StateFileName is the checkpoint document inside each run directory.
const StateFileName = "state.json"

// FileStore keeps one JSON document per run under <base>/<run id>/.
type FileStore struct {
	base string
}

// NewFileStore returns a store rooted at base.
func NewFileStore(base string) *FileStore {
	return &FileStore{base: base}
}

// Base returns the root run directory.
func (s *FileStore) Base() string { return s.base }

func (s *FileStore) Location(runID string) string {
	return filepath.Join(s.base, runID, StateFileName)
}

func (s *FileStore) Load(ctx context.Context, runID string) (*State, bool, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path := s.Location(runID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read checkpoint: %w", err)
	}
	state, err := decodeState(runID, path, data)
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

func (s *FileStore) Save(ctx context.Context, state *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := fileutil.WriteAtomic(s.Location(state.RunID), data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run directory: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || ValidateRunID(entry.Name()) != nil {
			continue
		}
		state, found, err := s.Load(ctx, entry.Name())
		switch {
		case errors.Is(err, ErrCorruptCheckpoint):
			summaries = append(summaries, Summary{RunID: entry.Name(), Corrupt: true})
		case err != nil:
			return nil, err
		case found:
			summaries = append(summaries, Summarize(state))
		}
	}
	sortSummaries(summaries)
	return summaries, nil
}

func (s *FileStore) Close() error { return nil }
