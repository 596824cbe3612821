package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-api/internal/config"
	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/pkg/circuitbreaker"
)

// Client posts notification summaries to a configured chat endpoint. One
// attempt per notification; failures are logged by the caller, never
// retried. The circuit breaker keeps a dead endpoint from slowing every
// dispatch down.
type Client struct {
	url        string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     zerolog.Logger
}

type payload struct {
	Text string `json:"text"`
}

func NewClient(cfg config.WebhookConfig, logger zerolog.Logger) *Client {
	return &Client{
		url: cfg.URL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "chat-webhook",
			MaxFailures: cfg.MaxFailures,
			Timeout:     time.Duration(cfg.CooldownSec) * time.Second,
		}),
		logger: logger,
	}
}

// Enabled reports whether a webhook endpoint is configured.
func (c *Client) Enabled() bool {
	return c.url != ""
}

// Post sends the emoji-tagged summary for one resolved tuple.
func (c *Client) Post(ctx context.Context, tuple model.Tuple) error {
	if !c.Enabled() {
		return fmt.Errorf("webhook endpoint not configured")
	}

	body, err := json.Marshal(payload{Text: Summary(tuple)})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	return c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("webhook post failed: %w", err)
		}
		defer func() {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}

// Summary renders the single-line chat text: emoji tag, message, actor and
// ticket reference.
func Summary(tuple model.Tuple) string {
	text := emojiFor(tuple.Type) + " " + tuple.Message
	if tuple.ActorName != "" {
		text += fmt.Sprintf(" (by %s)", tuple.ActorName)
	}
	if tuple.TicketID != nil {
		text += fmt.Sprintf(" [ticket %s]", tuple.TicketID)
	}
	return text
}

func emojiFor(t model.NotificationType) string {
	switch t {
	case model.NotificationTypeTicketCreated:
		return "\U0001F3AB" // ticket
	case model.NotificationTypeTicketAssigned:
		return "\U0001F464" // bust
	case model.NotificationTypeTicketResolved:
		return "✅" // check mark
	case model.NotificationTypeCommentAdded:
		return "\U0001F4AC" // speech balloon
	case model.NotificationTypeSystem:
		return "\U0001F4E2" // loudspeaker
	default:
		return "\U0001F514" // bell
	}
}
