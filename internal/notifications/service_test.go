package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hlsforge/internal/config"
	"hlsforge/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var requests []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte("topic rejected"))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func configFor(url string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.JobSucceeded = true
	cfg.Notifications.JobFailed = true
	cfg.Notifications.QueueDrained = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobFailed(context.Background(), "clip2", "boom"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "job succeeded",
			send: func(s notifications.Service) error {
				return s.NotifyJobSucceeded(context.Background(), "clip1", 95*time.Second)
			},
			expectTitle:   "hlsforge - Transcode Complete",
			expectMessage: "✅ Ready to stream: clip1 (1m35s)",
			expectTags:    "hlsforge,transcode,completed",
		},
		{
			name: "job failed",
			send: func(s notifications.Service) error {
				return s.NotifyJobFailed(context.Background(), "clip2", "moov atom not found")
			},
			expectTitle:    "hlsforge - Transcode Failed",
			expectMessage:  "❌ Transcode failed: clip2\nmoov atom not found",
			expectTags:     "hlsforge,transcode,failed",
			expectPriority: "high",
		},
		{
			name: "queue drained clean",
			send: func(s notifications.Service) error {
				return s.NotifyQueueDrained(context.Background(), 3, 0, 2*time.Minute)
			},
			expectTitle:   "hlsforge - Queue Drained",
			expectMessage: "Queue drained: 3 jobs transcoded in 2m0s",
			expectTags:    "hlsforge,queue,drained",
		},
		{
			name: "queue drained with failures",
			send: func(s notifications.Service) error {
				return s.NotifyQueueDrained(context.Background(), 2, 1, 0)
			},
			expectTitle:   "hlsforge - Queue Drained (with errors)",
			expectMessage: "Queue drained: 2 succeeded, 1 failed in 0s",
			expectTags:    "hlsforge,queue,drained",
		},
		{
			name: "test notification",
			send: func(s notifications.Service) error {
				return s.TestNotification(context.Background())
			},
			expectTitle:    "hlsforge - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "hlsforge,test",
			expectPriority: "low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, requests := newCaptureServer(t, http.StatusOK)
			svc := notifications.NewService(configFor(srv.URL))
			if err := tt.send(svc); err != nil {
				t.Fatalf("send: %v", err)
			}
			if len(*requests) != 1 {
				t.Fatalf("expected 1 request, got %d", len(*requests))
			}
			got := (*requests)[0]
			if got.title != tt.expectTitle {
				t.Fatalf("title = %q, want %q", got.title, tt.expectTitle)
			}
			if got.body != tt.expectMessage {
				t.Fatalf("body = %q, want %q", got.body, tt.expectMessage)
			}
			if got.tags != tt.expectTags {
				t.Fatalf("tags = %q, want %q", got.tags, tt.expectTags)
			}
			if got.priority != tt.expectPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tt.expectPriority)
			}
		})
	}
}

func TestNtfyServiceRespectsEventToggles(t *testing.T) {
	srv, requests := newCaptureServer(t, http.StatusOK)
	cfg := configFor(srv.URL)
	cfg.Notifications.JobSucceeded = false
	cfg.Notifications.QueueDrained = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyJobSucceeded(context.Background(), "clip1", time.Second); err != nil {
		t.Fatalf("NotifyJobSucceeded: %v", err)
	}
	if err := svc.NotifyQueueDrained(context.Background(), 1, 0, time.Second); err != nil {
		t.Fatalf("NotifyQueueDrained: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("muted events should not be sent, got %d requests", len(*requests))
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("test notification ignores toggles, got %d requests", len(*requests))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	svc := notifications.NewService(configFor(srv.URL))
	err := svc.NotifyJobFailed(context.Background(), "clip2", "boom")
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic rejected") {
		t.Fatalf("unexpected error: %v", err)
	}
}
