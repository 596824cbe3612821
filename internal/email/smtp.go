package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/notify-api/internal/config"
	"github.com/jwalitptl/notify-api/internal/model"
)

type smtpService struct {
	dialer        *gomail.Dialer
	from          string
	ticketBaseURL string
	logger        zerolog.Logger
}

func NewSMTPService(cfg config.SMTPConfig, logger zerolog.Logger) Service {
	return &smtpService{
		dialer:        gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:          cfg.From,
		ticketBaseURL: cfg.TicketBaseURL,
		logger:        logger,
	}
}

func (s *smtpService) SendNotification(ctx context.Context, to string, tuple model.Tuple) error {
	subject := Subject(tuple.Type, tuple.TicketTitle)
	body := s.buildBody(tuple)
	return s.SendCustom(ctx, to, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, body string) error {
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.logger.Debug().Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}

func (s *smtpService) buildBody(tuple model.Tuple) string {
	body := tuple.Message
	if tuple.TicketID != nil {
		body += fmt.Sprintf("\n\nTicket: %s (%s)", tuple.TicketTitle, tuple.TicketID)
		if link := TicketLink(s.ticketBaseURL, tuple.TicketID); link != "" {
			body += fmt.Sprintf("\nView ticket: %s", link)
		}
	}
	return body
}
