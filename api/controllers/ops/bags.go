package ops

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/api/validators"
	"github.com/freshkit/freshkit-backend/internal/bags"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

func ListBags(svc bags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bags service unavailable"))
			return
		}

		statuses, err := parseList(r, "status", enums.ParseBagStatus)
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

		page, err := svc.List(r.Context(), bags.ListFilter{
			Statuses: statuses,
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

// ProvisionBag registers a new physical bag in stock.
func ProvisionBag(svc bags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bags service unavailable"))
			return
		}

		var body bags.ProvisionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bag, err := svc.Provision(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bag)
	}
}

// BagAction issues, returns, retires or otherwise moves a bag by number.
func BagAction(svc bags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bags service unavailable"))
			return
		}

		var body bags.ActionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bag, err := svc.Apply(r.Context(), chi.URLParam(r, "bagNumber"), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bag)
	}
}
