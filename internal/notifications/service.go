package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"airlift/internal/config"
)

const userAgent = "Airlift/0.1.0"

// Service defines the notification surface exposed to the dispatcher.
type Service interface {
	NotifyUploadFailed(ctx context.Context, platform string, accountID int64, assetID, message string) error
	NotifyDispatchCompleted(ctx context.Context, assetID string, succeeded, failed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned and the
// system stays silent by design.
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

func (n *ntfyService) NotifyUploadFailed(ctx context.Context, platform string, accountID int64, assetID, message string) error {
	platform = strings.TrimSpace(platform)
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	data := payload{
		title:    fmt.Sprintf("Airlift - %s Upload Failed", displayName(platform)),
		message:  fmt.Sprintf("Asset %s (account %d): %s", assetID, accountID, message),
		tags:     []string{"airlift", platform, "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDispatchCompleted(ctx context.Context, assetID string, succeeded, failed int) error {
	var title, message string
	if failed == 0 {
		title = "Airlift - Dispatch Complete"
		message = fmt.Sprintf("Asset %s distributed to %d platforms", assetID, succeeded)
	} else {
		title = "Airlift - Dispatch Complete (with errors)"
		message = fmt.Sprintf("Asset %s: %d succeeded, %d failed", assetID, succeeded, failed)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"airlift", "dispatch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Airlift - Test",
		message:  "Notification system test",
		tags:     []string{"airlift", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func displayName(platform string) string {
	switch platform {
	case "":
		return "Unknown"
	case "soundcloud":
		return "SoundCloud"
	default:
		return strings.ToUpper(platform[:1]) + platform[1:]
	}
}

type noopService struct{}

func (noopService) NotifyUploadFailed(context.Context, string, int64, string, string) error { return nil }
func (noopService) NotifyDispatchCompleted(context.Context, string, int, int) error         { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }
