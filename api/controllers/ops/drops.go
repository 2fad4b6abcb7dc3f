package ops

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/api/validators"
	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

type dropStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	Operator       string `json:"operator" validate:"omitempty,max=64"`
	LaundryPartner string `json:"laundry_partner" validate:"omitempty,max=120"`
}

type checkInRequest struct {
	DropIDs  []string `json:"drop_ids" validate:"required,min=1,max=100,dive,required"`
	Status   string   `json:"status" validate:"required"`
	Operator string   `json:"operator" validate:"omitempty,max=64"`
}

// ListDrops filters by ?status (comma separated), ?gym and ?member and pages
// with ?limit and ?cursor.
func ListDrops(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}

		statuses, err := parseList(r, "status", enums.ParseDropStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := parseLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := parseCursor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), drops.ListFilter{
			Statuses: statuses,
			Gym:      queryText(r, "gym"),
			MemberID: queryText(r, "member"),
			Limit:    limit,
			Cursor:   cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetDrop(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}

		drop, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, drop)
	}
}

// CreateDrop logs a drop on a member's behalf without touching their allowance.
func CreateDrop(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}

		var body drops.OpsDropInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		drop, err := svc.CreateForOps(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, drop)
	}
}

// UpdateDropStatus moves a drop along its lifecycle and notifies on Ready.
func UpdateDropStatus(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}

		var body dropStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateStatus(r.Context(), drops.UpdateStatusInput{
			DropID:         chi.URLParam(r, "id"),
			Status:         body.Status,
			Operator:       body.Operator,
			LaundryPartner: body.LaundryPartner,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckIn applies one status to a batch of drops, reporting per-drop failures.
func CheckIn(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drops service unavailable"))
			return
		}

		var body checkInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkCheckIn(r.Context(), drops.BulkCheckInInput{
			DropIDs:  body.DropIDs,
			Status:   body.Status,
			Operator: body.Operator,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
