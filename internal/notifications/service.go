package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"imgsim/internal/config"
)

const userAgent = "imgsim/0.1.0"

// RunReport summarizes one driver run for delivery.
type RunReport struct {
	RunID             string
	Stages            []string
	Completed         int
	Skipped           int
	Failed            int
	FailedCollections []string
	Duration          time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
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

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	duration := max(report.Duration.Round(time.Second), 0)
	stages := strings.Join(report.Stages, ",")
	if stages == "" {
		stages = "all"
	}

	data := payload{
		title: "imgsim - Run Complete",
		message: fmt.Sprintf("Run %s (%s): %d completed, %d skipped, %d failed in %s",
			report.RunID, stages, report.Completed, report.Skipped, report.Failed, duration),
		tags: []string{"imgsim", "run", "completed"},
	}
	if report.Failed > 0 {
		data.title = "imgsim - Run Complete (with failures)"
		data.priority = "high"
		data.tags = []string{"imgsim", "run", "failed"}
		if len(report.FailedCollections) > 0 {
			data.message += "\nFailed: " + strings.Join(report.FailedCollections, ", ")
		}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "imgsim - Test",
		message:  "Notification system test",
		tags:     []string{"imgsim", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
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
	if data.priority != "" {
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

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
