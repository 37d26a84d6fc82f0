package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hlsforge/internal/config"
)

const userAgent = "hlsforge/0.1.0"

// Service defines the notification surface exposed to the workflow manager.
type Service interface {
	NotifyJobSucceeded(ctx context.Context, jobName string, elapsed time.Duration) error
	NotifyJobFailed(ctx context.Context, jobName, message string) error
	NotifyQueueDrained(ctx context.Context, succeeded, failed int, duration time.Duration) error
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
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		jobSucceeded: cfg.Notifications.JobSucceeded,
		jobFailed:    cfg.Notifications.JobFailed,
		queueDrained: cfg.Notifications.QueueDrained,
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

	jobSucceeded bool
	jobFailed    bool
	queueDrained bool
}

func (n *ntfyService) NotifyJobSucceeded(ctx context.Context, jobName string, elapsed time.Duration) error {
	if !n.jobSucceeded {
		return nil
	}
	message := fmt.Sprintf("✅ Ready to stream: %s", strings.TrimSpace(jobName))
	if elapsed > 0 {
		message = fmt.Sprintf("%s (%s)", message, formatDuration(elapsed))
	}
	return n.send(ctx, payload{
		title:   "hlsforge - Transcode Complete",
		message: message,
		tags:    []string{"hlsforge", "transcode", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobName, message string) error {
	if !n.jobFailed {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Transcode failed: ")
	builder.WriteString(strings.TrimSpace(jobName))
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString("\n")
		builder.WriteString(message)
	}
	return n.send(ctx, payload{
		title:    "hlsforge - Transcode Failed",
		message:  builder.String(),
		tags:     []string{"hlsforge", "transcode", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, succeeded, failed int, duration time.Duration) error {
	if !n.queueDrained {
		return nil
	}
	durationText := formatDuration(duration)
	title := "hlsforge - Queue Drained"
	message := fmt.Sprintf("Queue drained: %d jobs transcoded in %s", succeeded, durationText)
	if failed > 0 {
		title = "hlsforge - Queue Drained (with errors)"
		message = fmt.Sprintf("Queue drained: %d succeeded, %d failed in %s", succeeded, failed, durationText)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"hlsforge", "queue", "drained"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "hlsforge - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"hlsforge", "test"},
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

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyJobSucceeded(context.Context, string, time.Duration) error   { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error             { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, int, time.Duration) error { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
