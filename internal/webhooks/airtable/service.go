package airtablewebhook

import (
	"context"
	"strings"

	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/security"
)

// SecretHeader carries the shared secret configured on the Airtable automation.
const SecretHeader = "X-Webhook-Secret"

// Callback is posted by an Airtable automation after it changes a drop's status.
type Callback struct {
	DropID string `json:"drop_id" validate:"required"`
	Status string `json:"status" validate:"required"`
}

type Result struct {
	DropID   string                    `json:"drop_id"`
	Status   enums.DropStatus          `json:"status"`
	Notified bool                      `json:"notified"`
	Channel  enums.NotificationChannel `json:"channel,omitempty"`
}

type ServiceParams struct {
	Drops  drops.Service
	Secret string
	Logger *logger.Logger
}

// Service reacts to drop status changes made inside Airtable.
type Service struct {
	drops  drops.Service
	secret string
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Drops == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drops service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Service{
		drops:  params.Drops,
		secret: strings.TrimSpace(params.Secret),
		logg:   params.Logger,
	}, nil
}

// Authorize checks the shared secret. An unset secret rejects every call.
func (s *Service) Authorize(provided string) error {
	if s.secret == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "airtable webhook secret not configured")
	}
	if !security.EqualSecret(strings.TrimSpace(provided), s.secret) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret")
	}
	return nil
}

// Handle dispatches the ready notification when a drop became Ready. The
// automation has already written the status, so nothing is written back.
func (s *Service) Handle(ctx context.Context, cb Callback) (*Result, error) {
	dropID := strings.TrimSpace(cb.DropID)
	if dropID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "drop_id required")
	}
	status, err := enums.ParseDropStatus(cb.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]any{"valid": enums.DropStatuses()})
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"drop_id": dropID,
		"status":  string(status),
	})

	result := &Result{DropID: dropID, Status: status}
	if status != enums.DropStatusReady {
		s.logg.Debug(ctx, "airtable_webhook.no_action")
		return result, nil
	}
	outcome, err := s.drops.NotifyReady(ctx, dropID)
	if err != nil {
		return nil, err
	}
	result.Notified = outcome.Delivered()
	result.Channel = outcome.Channel
	if !result.Notified {
		s.logg.Warn(ctx, "airtable_webhook.ready_not_delivered")
	} else {
		s.logg.Info(ctx, "airtable_webhook.ready_notified")
	}
	return result, nil
}
