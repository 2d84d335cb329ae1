package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"airlift/internal/config"
	"airlift/internal/logging"
	"airlift/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyUploadFailed(context.Background(), "audiomack", 1, "ep1", "boom"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsUploadFailure(t *testing.T) {
	var captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyUploadFailed(context.Background(), "soundcloud", 2, "ep9", "login marker not found"); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}

	if captured.title != "Airlift - SoundCloud Upload Failed" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.body != "Asset ep9 (account 2): login marker not found" {
		t.Fatalf("unexpected body %q", captured.body)
	}
	if captured.tags != "airlift,soundcloud,error" {
		t.Fatalf("unexpected tags %q", captured.tags)
	}
	if captured.priority != "high" {
		t.Fatalf("unexpected priority %q", captured.priority)
	}
}

func TestNtfyServiceDispatchCompletedSummaries(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyDispatchCompleted(context.Background(), "ep1", 4, 0); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyDispatchCompleted(context.Background(), "ep2", 3, 1); err != nil {
		t.Fatal(err)
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(bodies))
	}
	if !strings.Contains(bodies[0], "distributed to 4 platforms") {
		t.Fatalf("unexpected success body %q", bodies[0])
	}
	if !strings.Contains(bodies[1], "3 succeeded, 1 failed") {
		t.Fatalf("unexpected partial body %q", bodies[1])
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic gone", http.StatusGone)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "410") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestBestEffortSwallowsErrors(t *testing.T) {
	called := false
	notifications.BestEffort(context.Background(), logging.NewNop(), "upload failure alert", func(context.Context) error {
		called = true
		return errors.New("transport down")
	})
	if !called {
		t.Fatal("expected wrapped call to run")
	}
	// Reaching this point is the assertion: the error never propagated.
}
