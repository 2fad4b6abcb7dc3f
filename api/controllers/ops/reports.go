package ops

import (
	"net/http"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/bags"
	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/sla"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

type statsResponse struct {
	Drops *drops.Stats `json:"drops"`
	Bags  *bags.Stats  `json:"bags"`
}

// Stats feeds the dashboard header counters.
func Stats(dropsSvc drops.Service, bagsSvc bags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dropsSvc == nil || bagsSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats unavailable"))
			return
		}

		dropStats, err := dropsSvc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bagStats, err := bagsSvc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statsResponse{Drops: dropStats, Bags: bagStats})
	}
}

func SLAReport(svc sla.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sla service unavailable"))
			return
		}

		report, err := svc.Report(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// AuditLog lists recent entries, optionally for one ?entity_type and ?entity_id.
func AuditLog(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		limit, err := parseLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.List(r.Context(), audit.ListParams{
			Limit:      limit,
			EntityType: queryText(r, "entity_type"),
			EntityID:   queryText(r, "entity_id"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
