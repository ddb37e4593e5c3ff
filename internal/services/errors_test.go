package services_test

import (
	"errors"
	"strings"
	"testing"

	"newsreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "render_video", "exec", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render_video", "exec", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "step failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestDetailsClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"input", services.Wrap(services.ErrInput, "script", "read", "missing news", nil), services.KindInput},
		{"execution", services.Wrap(services.ErrExecution, "audio", "verify", "no output", nil), services.KindExecution},
		{"fatal wins", services.Wrap(services.ErrFatal, "audio", "", "", services.ErrInput), services.KindFatal},
		{"unknown", errors.New("plain"), services.KindUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			details := services.Details(tc.err)
			if details.Kind != tc.want {
				t.Fatalf("kind = %s, want %s", details.Kind, tc.want)
			}
			if details.Hint == "" {
				t.Fatal("expected hint")
			}
		})
	}
	if got := services.Details(nil); got.Kind != "" {
		t.Fatalf("expected empty details for nil, got %+v", got)
	}
}

func TestIsFatal(t *testing.T) {
	if services.IsFatal(errors.New("plain")) {
		t.Fatal("plain errors must not be fatal")
	}
	if services.IsFatal(services.Wrap(services.ErrInput, "s", "", "", nil)) {
		t.Fatal("input errors must not be fatal")
	}
	for _, marker := range []error{services.ErrFatal, services.ErrUnexpected, services.ErrCheckpoint} {
		if !services.IsFatal(services.Wrap(marker, "s", "", "", nil)) {
			t.Fatalf("expected %v to be fatal", marker)
		}
	}
}
