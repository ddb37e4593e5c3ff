package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestCheckCommandPasses(t *testing.T) {
	env := setupCLITestEnv(t, writerStepsTOML, "")

	out, _, err := runCLI(t, []string{"check", "--verbose"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Run directory:")
	requireContains(t, out, "Metrics directory:")
	requireContains(t, out, "[OK] 1/1 providers available (writer)")
	requireContains(t, out, "nr-writer")
}

func TestCheckCommandFailsOnMissingProvider(t *testing.T) {
	env := setupCLITestEnv(t, `
[[pipeline.steps]]
name = "render"
output = "video.mp4"

  [[pipeline.steps.providers]]
  name = "ffmpeg"
  command = "nr-definitely-not-installed"
`, "")

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "Step render")
	requireContains(t, out, "[ERROR] no available provider (ffmpeg)")
}

func TestTestNotifyCommand(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := setupCLITestEnv(t, "", fmt.Sprintf("[notifications]\nntfy_topic = %q\n\n", srv.URL+"/newsreel"))

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if hits.Load() != 1 {
		t.Fatalf("expected 1 request, got %d", hits.Load())
	}
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t, "", "")
	if _, _, err := runCLI(t, []string{"test-notify"}, env.configPath); err == nil {
		t.Fatal("expected missing topic error")
	}
}
