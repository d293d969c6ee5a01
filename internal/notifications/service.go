package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"showsweep/internal/config"
)

const userAgent = "ShowSweep-Go/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventSweepCompleted Event = "sweep_completed"
	EventActionFailed   Event = "action_failed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries the values interpolated into a message.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
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
		errors:   cfg.Notifications.Errors,
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
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if (event == EventError || event == EventActionFailed) && !n.errors {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventSweepCompleted:
		return sweepCompleted(payload), true
	case EventActionFailed:
		return message{
			title:    "ShowSweep - Action Failed",
			body:     fmt.Sprintf("%s failed for %s: %s", text(payload, "action"), text(payload, "title"), text(payload, "error")),
			tags:     []string{"showsweep", "action", "failed"},
			priority: "high",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := text(payload, "context"); label != "" {
			b.WriteString(" during ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if errText := text(payload, "error"); errText != "" {
			b.WriteString(errText)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "ShowSweep - Error",
			body:     b.String(),
			tags:     []string{"showsweep", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "ShowSweep - Test",
			body:     "Notification system test",
			tags:     []string{"showsweep", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func sweepCompleted(payload Payload) message {
	scanned := number(payload, "scanned")
	eligible := number(payload, "eligible")
	acted := number(payload, "acted")
	failed := number(payload, "failed")

	lines := []string{fmt.Sprintf("Scanned %d series: %d eligible, %d acted on", scanned, eligible, acted)}
	if bytes := number(payload, "reclaimableBytes"); bytes > 0 {
		lines = append(lines, "Reclaimable: "+humanize.IBytes(uint64(bytes)))
	}
	if d, ok := payload["duration"].(time.Duration); ok {
		d = max(d.Round(time.Second), 0)
		lines = append(lines, "Duration: "+d.String())
	}

	title := "ShowSweep - Sweep Complete"
	tags := []string{"showsweep", "sweep", "completed"}
	if dryRun, _ := payload["dryRun"].(bool); dryRun {
		title = "ShowSweep - Dry Run Complete"
		tags = append(tags, "dryrun")
	}
	if failed > 0 {
		title += " (with errors)"
		lines = append(lines, fmt.Sprintf("%d actions failed", failed))
	}
	return message{title: title, body: strings.Join(lines, "\n"), tags: tags}
}

func text(payload Payload, key string) string {
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func number(payload Payload, key string) int64 {
	switch v := payload[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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
