package resend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	resendsdk "github.com/resend/resend-go/v2"
)

// Email is one outbound transactional message.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Sender delivers transactional email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, email Email) (string, error)
}

// NewSender returns a Resend-backed sender, or a logging no-op when no API key is configured.
func NewSender(cfg config.ResendConfig, logg *logger.Logger) Sender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewNoopSender(logg)
	}
	return NewResendSender(cfg.APIKey, cfg.From)
}

type ResendSender struct {
	client *resendsdk.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resendsdk.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) Send(ctx context.Context, email Email) (string, error) {
	if len(email.To) == 0 {
		return "", errors.New("resend: recipient is required")
	}
	params := &resendsdk.SendEmailRequest{
		From:    s.from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if email.ReplyTo != "" {
		params.ReplyTo = email.ReplyTo
	}
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend send: %w", err)
	}
	return sent.Id, nil
}

// NoopSender logs instead of delivering. Used in development when no API key is set.
type NoopSender struct {
	logg *logger.Logger
}

func NewNoopSender(logg *logger.Logger) *NoopSender {
	return &NoopSender{logg: logg}
}

func (s *NoopSender) Send(ctx context.Context, email Email) (string, error) {
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"to":      email.To,
			"subject": email.Subject,
		})
		s.logg.Info(logCtx, "email.noop_send")
	}
	return "noop", nil
}
