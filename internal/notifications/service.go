package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/jobs"
)

const userAgent = "Scribe-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	JobCompleted(ctx context.Context, job *jobs.Job) error
	JobFailed(ctx context.Context, job *jobs.Job) error
	JobCancelled(ctx context.Context, job *jobs.Job) error
	Error(ctx context.Context, err error, contextLabel string) error
	Test(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// Without an ntfy topic it returns a noop implementation.
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
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		errors:    cfg.Notifications.Errors,
	}
}

// NewNop returns a service that drops every notification.
func NewNop() Service { return noopService{} }

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	errors    bool
}

func (n *ntfyService) JobCompleted(ctx context.Context, job *jobs.Job) error {
	if !n.completed {
		return nil
	}
	data := payload{
		title:   "Scribe - Job Complete",
		message: fmt.Sprintf("Minutes ready for job %s", shortID(job)),
		tags:    []string{"scribe", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) JobFailed(ctx context.Context, job *jobs.Job) error {
	if !n.errors {
		return nil
	}
	message := fmt.Sprintf("Job %s failed in %s", shortID(job), job.FailedStage)
	if reason := strings.TrimSpace(job.ErrorMessage); reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	data := payload{
		title:    "Scribe - Job Failed",
		message:  message,
		tags:     []string{"scribe", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) JobCancelled(ctx context.Context, job *jobs.Job) error {
	if !n.completed {
		return nil
	}
	data := payload{
		title:   "Scribe - Job Cancelled",
		message: fmt.Sprintf("Job %s was cancelled", shortID(job)),
		tags:    []string{"scribe", "job", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) Error(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Scribe - Error",
		message:  builder.String(),
		tags:     []string{"scribe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) Test(ctx context.Context) error {
	data := payload{
		title:    "Scribe - Test",
		message:  "Notification system test",
		tags:     []string{"scribe", "test"},
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

func shortID(job *jobs.Job) string {
	if job == nil {
		return "unknown"
	}
	if len(job.ID) > 8 {
		return job.ID[:8]
	}
	return job.ID
}

type noopService struct{}

func (noopService) JobCompleted(context.Context, *jobs.Job) error { return nil }
func (noopService) JobFailed(context.Context, *jobs.Job) error    { return nil }
func (noopService) JobCancelled(context.Context, *jobs.Job) error { return nil }
func (noopService) Error(context.Context, error, string) error    { return nil }
func (noopService) Test(context.Context) error                    { return nil }
