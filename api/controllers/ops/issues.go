package ops

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/api/validators"
	"github.com/freshkit/freshkit-backend/internal/issues"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

// ListIssues returns the open queue for ?open=true, otherwise filters by
// ?status and ?member.
func ListIssues(svc issues.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "issues service unavailable"))
			return
		}

		if raw := r.URL.Query().Get("open"); raw != "" {
			open, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "open must be a boolean").
					WithDetails(map[string]any{"field": "open"}))
				return
			}
			if open {
				list, err := svc.ListOpen(r.Context())
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				responses.WriteSuccess(w, list)
				return
			}
		}

		statuses, err := parseList(r, "status", enums.ParseIssueStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := parseLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), issues.ListFilter{
			Statuses: statuses,
			MemberID: queryText(r, "member"),
			Limit:    limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CreateIssue(svc issues.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "issues service unavailable"))
			return
		}

		var body issues.OpsIssueInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issue, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issue)
	}
}

// UpdateIssue changes status, priority or resolution; the member hears about
// it when the ticket closes.
func UpdateIssue(svc issues.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "issues service unavailable"))
			return
		}

		var body issues.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issue, err := svc.Update(r.Context(), chi.URLParam(r, "id"), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, issue)
	}
}
