package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-api/internal/email"
	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/internal/webhook"
	"github.com/jwalitptl/notify-api/pkg/messaging"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

// Resolver turns one event into its recipient tuples.
type Resolver interface {
	Resolve(ctx context.Context, event *model.TicketEvent) []model.Tuple
}

// PreferenceReader returns a recipient's channel toggles (defaults when the
// user has none stored).
type PreferenceReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error)
}

// WebhookPoster is the chat-webhook channel.
type WebhookPoster interface {
	Enabled() bool
	Post(ctx context.Context, tuple model.Tuple) error
}

var _ WebhookPoster = (*webhook.Client)(nil)

// Service fans an event out to its recipients. The store write is
// authoritative and always attempted; mail and webhook are best-effort
// secondary channels gated by preferences, each isolated from the others'
// failures. Dispatch is detached from the caller: the ticket action that
// produced the event never waits on, or fails because of, delivery.
type Service struct {
	resolver Resolver
	store    repository.NotificationRepository
	users    repository.UserRepository
	prefs    PreferenceReader
	email    email.Service
	webhook  WebhookPoster
	broker   messaging.Broker
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	timeout time.Duration
	wg      sync.WaitGroup
}

type Config struct {
	// DispatchTimeout bounds one event's whole fan-out.
	DispatchTimeout time.Duration
}

func NewService(
	resolver Resolver,
	store repository.NotificationRepository,
	users repository.UserRepository,
	prefs PreferenceReader,
	emailSvc email.Service,
	webhookClient WebhookPoster,
	broker messaging.Broker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg Config,
) *Service {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 30 * time.Second
	}
	return &Service{
		resolver: resolver,
		store:    store,
		users:    users,
		prefs:    prefs,
		email:    emailSvc,
		webhook:  webhookClient,
		broker:   broker,
		metrics:  m,
		logger:   logger,
		timeout:  cfg.DispatchTimeout,
	}
}

// DispatchEvent resolves the event and fans out asynchronously. It returns
// as soon as the tuples are handed off; errors inside the fan-out are
// logged and counted, never returned to the triggering request.
func (s *Service) DispatchEvent(ctx context.Context, event *model.TicketEvent) {
	if event == nil {
		s.metrics.EventsSkipped.Inc()
		return
	}
	s.metrics.EventsReceived.WithLabelValues(string(event.Type)).Inc()

	tuples := s.resolver.Resolve(ctx, event)
	s.metrics.TuplesResolved.Observe(float64(len(tuples)))
	if len(tuples) == 0 {
		s.metrics.EventsSkipped.Inc()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Detached from the request context: the ticket action completing
		// (or its request being canceled) must not cancel delivery.
		dispatchCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.dispatchTuples(dispatchCtx, tuples)
	}()
}

// Wait blocks until all in-flight fan-outs finish. Used on shutdown and in
// tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// dispatchTuples runs the per-recipient deliveries concurrently. Each
// recipient's store write and secondary attempts touch only that recipient's
// data, so there is no shared state to lock.
func (s *Service) dispatchTuples(ctx context.Context, tuples []model.Tuple) {
	timer := prometheus.NewTimer(s.metrics.DispatchDuration)
	defer timer.ObserveDuration()

	var wg sync.WaitGroup
	for _, tuple := range tuples {
		wg.Add(1)
		go func(tuple model.Tuple) {
			defer wg.Done()
			s.dispatchTuple(ctx, tuple)
		}(tuple)
	}
	wg.Wait()
}

func (s *Service) dispatchTuple(ctx context.Context, tuple model.Tuple) {
	// (a) Authoritative channel: always attempted, independent of
	// preferences and of every other tuple in the batch.
	s.createNotification(ctx, tuple)

	// (b) Secondary channels, gated by preferences, each isolated. A store
	// failure above does not suppress them: the tuple is still deliverable
	// over mail even when the row insert failed.
	prefs, err := s.prefs.Get(ctx, tuple.RecipientID)
	if err != nil {
		s.logger.Error().Err(err).Str("recipient_id", tuple.RecipientID.String()).
			Msg("failed to load preferences, skipping secondary channels")
		return
	}

	if !typeEnabled(prefs, tuple.Type) {
		s.metrics.MailSkipped.Inc()
		s.metrics.WebhookSkipped.Inc()
		return
	}

	s.sendMail(ctx, tuple, prefs)
	s.sendWebhook(ctx, tuple)
}

func (s *Service) createNotification(ctx context.Context, tuple model.Tuple) {
	notification := &model.Notification{
		ID:            uuid.New(),
		RecipientID:   tuple.RecipientID,
		Message:       tuple.Message,
		Type:          tuple.Type,
		TicketID:      tuple.TicketID,
		RelatedUserID: tuple.RelatedUserID,
		IsRead:        false,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.Create(ctx, notification); err != nil {
		s.metrics.StoreFailures.Inc()
		s.logger.Error().Err(err).
			Str("recipient_id", tuple.RecipientID.String()).
			Str("notification_type", string(tuple.Type)).
			Msg("notification store write failed")
		return
	}
	s.metrics.NotificationsStored.WithLabelValues(string(tuple.Type)).Inc()

	// Push to any connected client. The live channel gives no missed-event
	// guarantee; disconnected clients recover via backfill.
	channel := messaging.RecipientChannel(notification.RecipientID)
	if err := s.broker.Publish(ctx, channel, notification); err != nil {
		s.metrics.LivePushFailures.Inc()
		s.logger.Warn().Err(err).Str("channel", channel).Msg("live push failed")
	} else {
		s.metrics.LivePushes.Inc()
	}
}

func (s *Service) sendMail(ctx context.Context, tuple model.Tuple, prefs *model.NotificationPreferences) {
	if !prefs.Email {
		s.metrics.MailSkipped.Inc()
		return
	}

	user, err := s.users.Get(ctx, tuple.RecipientID)
	if err != nil {
		s.metrics.MailFailed.Inc()
		s.logger.Error().Err(err).Str("recipient_id", tuple.RecipientID.String()).
			Msg("failed to resolve mail address")
		return
	}

	if err := s.email.SendNotification(ctx, user.Email, tuple); err != nil {
		s.metrics.MailFailed.Inc()
		s.logger.Error().Err(err).Str("recipient_id", tuple.RecipientID.String()).
			Msg("mail delivery failed")
		return
	}
	s.metrics.MailSent.Inc()
}

func (s *Service) sendWebhook(ctx context.Context, tuple model.Tuple) {
	if s.webhook == nil || !s.webhook.Enabled() {
		s.metrics.WebhookSkipped.Inc()
		return
	}

	if err := s.webhook.Post(ctx, tuple); err != nil {
		s.metrics.WebhookFailed.Inc()
		s.logger.Error().Err(err).Str("recipient_id", tuple.RecipientID.String()).
			Msg("webhook post failed")
		return
	}
	s.metrics.WebhookSent.Inc()
}

// typeEnabled applies the per-type preference gate: ticket-related
// notifications honor the ticket_updates toggle, system notifications the
// announcements toggle.
func typeEnabled(prefs *model.NotificationPreferences, t model.NotificationType) bool {
	if t.TicketRelated() {
		return prefs.TicketUpdates
	}
	return prefs.Announcements
}
