package webhooks

import (
	"context"
	"net/http"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/api/validators"
	airtablewebhook "github.com/freshkit/freshkit-backend/internal/webhooks/airtable"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

type AirtableWebhookService interface {
	Authorize(provided string) error
	Handle(ctx context.Context, cb airtablewebhook.Callback) (*airtablewebhook.Result, error)
}

// AirtableWebhook receives status callbacks from Airtable automations.
func AirtableWebhook(svc AirtableWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if err := svc.Authorize(r.Header.Get(airtablewebhook.SecretHeader)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body airtablewebhook.Callback
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Handle(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
