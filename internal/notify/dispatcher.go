package notify

import (
	"context"
	"strings"

	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/markdown"
	"github.com/freshkit/freshkit-backend/pkg/metrics"
	"github.com/freshkit/freshkit-backend/pkg/phone"
	"github.com/freshkit/freshkit-backend/pkg/resend"
	"github.com/freshkit/freshkit-backend/pkg/twilio"
)

// Recipient is whoever a message goes to. Either contact may be blank.
type Recipient struct {
	Name  string
	Phone string
	Email string
}

// Outcome reports which channel carried a message.
type Outcome struct {
	Channel   enums.NotificationChannel `json:"channel"`
	MessageID string                    `json:"message_id,omitempty"`
}

// Delivered reports whether any channel accepted the message.
func (o Outcome) Delivered() bool {
	return o.Channel.Delivered()
}

// WhatsAppSender is satisfied by *twilio.Client.
type WhatsAppSender interface {
	Enabled() bool
	SendWhatsApp(ctx context.Context, to, body string) (twilio.Message, error)
}

// Dispatcher delivers templated messages. It never returns an error: the
// outcome says which channel, if any, accepted the message.
type Dispatcher interface {
	Notify(ctx context.Context, to Recipient, msg Message) Outcome
	// NotifyOps emails the ops mailbox.
	NotifyOps(ctx context.Context, msg Message) Outcome
}

type DispatcherParams struct {
	WhatsApp   WhatsAppSender
	Email      resend.Sender
	Logger     *logger.Logger
	Metrics    *metrics.NotificationMetrics
	OpsMailbox string
}

type dispatcher struct {
	whatsapp   WhatsAppSender
	email      resend.Sender
	logg       *logger.Logger
	metrics    *metrics.NotificationMetrics
	opsMailbox string
}

func NewDispatcher(params DispatcherParams) (Dispatcher, error) {
	if params.WhatsApp == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp sender required")
	}
	if params.Email == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "email sender required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &dispatcher{
		whatsapp:   params.WhatsApp,
		email:      params.Email,
		logg:       params.Logger,
		metrics:    params.Metrics,
		opsMailbox: strings.TrimSpace(params.OpsMailbox),
	}, nil
}

func (d *dispatcher) Notify(ctx context.Context, to Recipient, msg Message) Outcome {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"template": string(msg.Template),
		"phone":    phone.Mask(to.Phone),
	})

	if strings.TrimSpace(to.Phone) != "" && d.whatsapp.Enabled() {
		sent, err := d.whatsapp.SendWhatsApp(ctx, to.Phone, msg.WhatsApp)
		if err == nil {
			return d.done(logCtx, msg, Outcome{Channel: enums.NotificationChannelWhatsApp, MessageID: sent.SID})
		}
		d.metrics.IncChannelFailure(string(enums.NotificationChannelWhatsApp))
		d.logg.Warn(d.logg.WithField(logCtx, "error", err.Error()), "notify.whatsapp_failed")
	}

	if strings.TrimSpace(to.Email) != "" {
		if outcome, ok := d.sendEmail(logCtx, to.Email, msg); ok {
			return d.done(logCtx, msg, outcome)
		}
	}

	return d.done(logCtx, msg, Outcome{Channel: enums.NotificationChannelNone})
}

func (d *dispatcher) NotifyOps(ctx context.Context, msg Message) Outcome {
	logCtx := d.logg.WithField(ctx, "template", string(msg.Template))
	if d.opsMailbox == "" {
		d.logg.Warn(logCtx, "notify.ops_mailbox_unset")
		return d.done(logCtx, msg, Outcome{Channel: enums.NotificationChannelNone})
	}
	if outcome, ok := d.sendEmail(logCtx, d.opsMailbox, msg); ok {
		return d.done(logCtx, msg, outcome)
	}
	return d.done(logCtx, msg, Outcome{Channel: enums.NotificationChannelNone})
}

func (d *dispatcher) sendEmail(ctx context.Context, to string, msg Message) (Outcome, bool) {
	id, err := d.email.Send(ctx, resend.Email{
		To:      []string{to},
		Subject: msg.Subject,
		HTML:    markdown.ToHTML(msg.EmailMarkdown),
		Text:    msg.EmailMarkdown,
	})
	if err != nil {
		d.metrics.IncChannelFailure(string(enums.NotificationChannelEmail))
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "notify.email_failed")
		return Outcome{}, false
	}
	return Outcome{Channel: enums.NotificationChannelEmail, MessageID: id}, true
}

func (d *dispatcher) done(ctx context.Context, msg Message, outcome Outcome) Outcome {
	d.metrics.IncOutcome(string(msg.Template), string(outcome.Channel))
	logCtx := d.logg.WithField(ctx, "channel", string(outcome.Channel))
	if outcome.Delivered() {
		d.logg.Info(logCtx, "notify.sent")
	} else {
		d.logg.Warn(logCtx, "notify.undelivered")
	}
	return outcome
}
