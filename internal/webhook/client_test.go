package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-api/internal/config"
	"github.com/jwalitptl/notify-api/internal/model"
)

func newTestClient(url string) *Client {
	return NewClient(config.WebhookConfig{
		URL:            url,
		TimeoutSeconds: 2,
		MaxFailures:    3,
		CooldownSec:    60,
	}, zerolog.Nop())
}

func sampleTuple() model.Tuple {
	ticketID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	return model.Tuple{
		RecipientID: uuid.New(),
		Message:     "Ticket 'VPN down' has been updated",
		Type:        model.NotificationTypeTicketUpdated,
		TicketID:    &ticketID,
		TicketTitle: "VPN down",
		ActorName:   "Dana",
	}
}

func TestPostSendsSummaryPayload(t *testing.T) {
	var (
		gotBody        []byte
		gotContentType string
		calls          int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	require.True(t, client.Enabled())
	require.NoError(t, client.Post(context.Background(), sampleTuple()))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "application/json", gotContentType)

	var body map[string]string
	require.NoError(t, json.Unmarshal(gotBody, &body))
	text := body["text"]
	assert.Contains(t, text, "Ticket 'VPN down' has been updated")
	assert.Contains(t, text, "(by Dana)")
	assert.Contains(t, text, "[ticket 11111111-2222-3333-4444-555555555555]")
}

func TestPostSingleAttemptOnFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.Post(context.Background(), sampleTuple())
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPostBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 3; i++ {
		assert.Error(t, client.Post(context.Background(), sampleTuple()))
	}

	// Breaker is open now: the endpoint is no longer hit.
	err := client.Post(context.Background(), sampleTuple())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
	assert.Equal(t, 3, calls)
}

func TestPostUnconfigured(t *testing.T) {
	client := newTestClient("")
	assert.False(t, client.Enabled())
	assert.Error(t, client.Post(context.Background(), sampleTuple()))
}

func TestSummaryOmitsMissingContext(t *testing.T) {
	text := Summary(model.Tuple{
		Message: "Scheduled maintenance tonight",
		Type:    model.NotificationTypeSystem,
	})
	assert.Contains(t, text, "Scheduled maintenance tonight")
	assert.False(t, strings.Contains(text, "(by"), "no actor suffix without an actor")
	assert.False(t, strings.Contains(text, "[ticket"), "no ticket suffix without a ticket")
}
