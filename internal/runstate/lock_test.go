package runstate

import (
	"errors"
	"testing"
)

func TestAcquireLockExclusive(t *testing.T) {
	base := t.TempDir()

	first, err := AcquireLock(base, "r1")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := AcquireLock(base, "r1"); !errors.Is(err, ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
	other, err := AcquireLock(base, "r2")
	if err != nil {
		t.Fatalf("different run should lock independently: %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatal(err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("double release: %v", err)
	}
	again, err := AcquireLock(base, "r1")
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	_ = again.Release()
}
