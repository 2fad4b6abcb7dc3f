package controllers

import (
	"net/http"

	"github.com/freshkit/freshkit-backend/api/middleware"
	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/api/validators"
	"github.com/freshkit/freshkit-backend/internal/billing"
	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/issues"
	"github.com/freshkit/freshkit-backend/internal/members"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

// Subscription actions exposed under /portal/subscription/{action}.
const (
	SubscriptionPause  = "pause"
	SubscriptionResume = "resume"
	SubscriptionCancel = "cancel"
)

func memberFromRequest(r *http.Request) (string, error) {
	memberID := middleware.MemberIDFromContext(r.Context())
	if memberID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "member context missing")
	}
	return memberID, nil
}

// PortalProfile returns the member with their gym and plan.
func PortalProfile(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}
		memberID, err := memberFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Profile(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func PortalUpdateProfile(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}
		memberID, err := memberFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body members.ProfileInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.UpdateProfile(r.Context(), memberID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, member)
	}
}

func PortalDrops(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}
		memberID, err := memberFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForMember(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// PortalCreateDrop books a drop against the member's allowance.
func PortalCreateDrop(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}
		memberID, err := memberFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body drops.MemberDropInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		drop, err := svc.CreateForMember(r.Context(), memberID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, drop)
	}
}

func PortalIssues(svc issues.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "issues service unavailable"))
			return
		}
		memberID, err := memberFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForMember(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func PortalCreateIssue(svc issues.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "issues service unavailable"))
			return
		}
		memberID, err := memberFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body issues.MemberIssueInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issue, err := svc.CreateForMember(r.Context(), memberID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issue)
	}
}

// PortalSubscription pauses, resumes or cancels the member's subscription.
func PortalSubscription(svc billing.Service, action string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}
		memberID, err := memberFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var result *billing.Result
		switch action {
		case SubscriptionPause:
			result, err = svc.Pause(r.Context(), memberID)
		case SubscriptionResume:
			result, err = svc.Resume(r.Context(), memberID)
		case SubscriptionCancel:
			result, err = svc.Cancel(r.Context(), memberID)
		default:
			err = pkgerrors.New(pkgerrors.CodeNotFound, "unknown subscription action")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PortalBillingSession hands off to the Stripe customer portal.
func PortalBillingSession(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}
		memberID, err := memberFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.PortalSession(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
