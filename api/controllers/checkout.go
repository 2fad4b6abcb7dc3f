package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshkit/freshkit-backend/api/middleware"
	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/api/validators"
	"github.com/freshkit/freshkit-backend/internal/checkout"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

// Checkout opens a Stripe Checkout session for a new subscription.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body checkout.SessionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateSession(r.Context(), body, r.Header.Get(middleware.IdempotencyHeader))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutSessionStatus backs the welcome page after Stripe redirects back.
func CheckoutSessionStatus(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		status, err := svc.SessionStatus(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
