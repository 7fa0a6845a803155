package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"baler/internal/config"
)

const userAgent = "Baler/0.1.0"

// Event identifies a pipeline milestone that may produce a push notification.
type Event string

const (
	EventItemsDiscovered Event = "items-discovered"
	EventItemCompleted   Event = "item-completed"
	EventItemFailed      Event = "item-failed"
	EventRunCompleted    Event = "run-completed"
	EventTest            Event = "test"
)

// Payload carries event-specific values already formatted for display.
type Payload map[string]string

func (p Payload) get(key string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p[key])
}

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		prefs:    cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	prefs    config.Notifications
}

// Publish renders the event into an ntfy message and delivers it. Events
// suppressed by configuration, and events this service does not recognize,
// return nil without a request.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	data, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventItemsDiscovered:
		return n.prefs.Discovery
	case EventItemCompleted:
		return n.prefs.ItemCompleted
	case EventItemFailed:
		return n.prefs.Errors
	case EventRunCompleted:
		return n.prefs.RunCompleted
	case EventTest:
		return true
	default:
		return false
	}
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventItemsDiscovered:
		return renderItemsDiscovered(payload), true
	case EventItemCompleted:
		return renderItemCompleted(payload), true
	case EventItemFailed:
		return renderItemFailed(payload), true
	case EventRunCompleted:
		return renderRunCompleted(payload), true
	case EventTest:
		return message{
			title:    "Baler - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"baler", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func renderItemsDiscovered(payload Payload) message {
	count := payload.get("count")
	if count == "" {
		count = "0"
	}
	return message{
		title: "Baler - Discovery",
		body:  fmt.Sprintf("📥 Cataloged %s new files", count),
		tags:  []string{"baler", "discovery"},
	}
}

func renderItemCompleted(payload Payload) message {
	body := fmt.Sprintf("✅ Compressed: %s", payload.get("filename"))
	if ratio := payload.get("ratio"); ratio != "" {
		body = fmt.Sprintf("%s\nOutput is %s of the original size", body, ratio)
	}
	return message{
		title: "Baler - Item Complete",
		body:  body,
		tags:  []string{"baler", "item", "completed"},
	}
}

func renderItemFailed(payload Payload) message {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel := payload.get("context"); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if detail := payload.get("error"); detail != "" {
		builder.WriteString(detail)
	} else {
		builder.WriteString("unknown")
	}
	return message{
		title:    "Baler - Error",
		body:     builder.String(),
		tags:     []string{"baler", "error", "alert"},
		priority: "high",
	}
}

func renderRunCompleted(payload Payload) message {
	processed := payload.get("processed")
	if processed == "" {
		processed = "0"
	}
	failed := payload.get("failed")
	duration := payload.get("duration")
	if duration == "" {
		duration = "0s"
	}

	title := "Baler - Run Complete"
	body := fmt.Sprintf("Run complete: %s items processed in %s", processed, duration)
	if failed != "" && failed != "0" {
		title = "Baler - Run Complete (with errors)"
		body = fmt.Sprintf("Run complete: %s succeeded, %s failed in %s", processed, failed, duration)
	}
	return message{
		title: title,
		body:  body,
		tags:  []string{"baler", "run", "completed"},
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
