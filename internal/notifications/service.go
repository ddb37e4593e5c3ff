package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"newsreel/internal/config"
)

const userAgent = "newsreel/0.1.0"

// maxListedErrors bounds the error lines included in a summary.
const maxListedErrors = 5

// RunSummary is the notification view of a finished run.
type RunSummary struct {
	RunID    string
	Status   string
	Outputs  int
	Steps    int
	Errors   []string
	Duration time.Duration
}

// Service defines the notification surface used by the CLI and trackers.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Run %s complete: %d outputs in %s", summary.RunID, summary.Outputs, formatDuration(summary.Duration))
	writeErrors(&b, summary.Errors, "Optional step errors")
	return n.send(ctx, payload{
		title:   "newsreel - Run Complete",
		message: b.String(),
		tags:    []string{"newsreel", "run", "completed"},
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, summary RunSummary) error {
	status := strings.TrimSpace(summary.Status)
	if status == "" {
		status = "failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Run %s %s after %s", summary.RunID, status, formatDuration(summary.Duration))
	if summary.Steps > 0 {
		fmt.Fprintf(&b, " (%d/%d outputs)", summary.Outputs, summary.Steps)
	}
	writeErrors(&b, summary.Errors, "Errors")
	b.WriteString("\nRe-run with --run-id ")
	b.WriteString(summary.RunID)
	b.WriteString(" to resume")
	return n.send(ctx, payload{
		title:    "newsreel - Run " + titleCase(status),
		message:  b.String(),
		tags:     []string{"newsreel", "run", status},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "newsreel - Error",
		message:  builder.String(),
		tags:     []string{"newsreel", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "newsreel - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"newsreel", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func writeErrors(b *strings.Builder, errs []string, heading string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:", heading)
	for i, e := range errs {
		if i == maxListedErrors {
			fmt.Fprintf(b, "\n- ... and %d more", len(errs)-maxListedErrors)
			break
		}
		b.WriteString("\n- ")
		b.WriteString(e)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyRunFailed(context.Context, RunSummary) error    { return nil }
func (noopService) NotifyError(context.Context, error, string) error     { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
