package testsupport

import (
	"testing"

	"newsreel/internal/config"
	"newsreel/internal/runstate"
)

// MustOpenStore opens the configured run-state store and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) runstate.Store {
	t.Helper()
	store, err := runstate.Open(cfg)
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
