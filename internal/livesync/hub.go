package livesync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/pkg/messaging"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

// Hub opens per-recipient subscriptions over the message broker. The broker
// gives no delivery guarantee for the disconnected interval, so every
// consumer must backfill from the store on (re)connect before trusting
// incremental pushes.
type Hub struct {
	broker  messaging.Broker
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// Subscription delivers one recipient's notification pushes until Close.
type Subscription struct {
	ch     chan model.Notification
	cancel context.CancelFunc
}

func NewHub(broker messaging.Broker, m *metrics.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		broker:  broker,
		metrics: m,
		logger:  logger,
	}
}

// Subscribe opens the live channel for one recipient. The subscription ends
// when Close is called or the parent context is canceled; Close must run on
// every exit path of the consumer or the subscription leaks.
func (h *Hub) Subscribe(ctx context.Context, recipientID uuid.UUID) (*Subscription, error) {
	if recipientID == uuid.Nil {
		return nil, fmt.Errorf("recipient id is required")
	}

	subCtx, cancel := context.WithCancel(ctx)
	raw, err := h.broker.Subscribe(subCtx, messaging.RecipientChannel(recipientID))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &Subscription{
		ch:     make(chan model.Notification, 32),
		cancel: cancel,
	}
	h.metrics.LiveSubscribers.Inc()

	go func() {
		defer func() {
			close(sub.ch)
			h.metrics.LiveSubscribers.Dec()
		}()

		for payload := range raw {
			var n model.Notification
			if err := json.Unmarshal(payload, &n); err != nil {
				h.logger.Warn().Err(err).
					Str("recipient_id", recipientID.String()).
					Msg("dropping undecodable live push")
				continue
			}
			if n.RecipientID != recipientID {
				// Channel names are per recipient; anything else is a
				// publisher bug, not something to surface to the client.
				h.logger.Warn().
					Str("recipient_id", recipientID.String()).
					Str("got", n.RecipientID.String()).
					Msg("dropping misrouted live push")
				continue
			}

			select {
			case sub.ch <- n:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// C is the stream of pushed notifications. It is closed after Close.
func (s *Subscription) C() <-chan model.Notification {
	return s.ch
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	s.cancel()
}
