package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/internal/cron"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

// CronTrigger is satisfied by *cron.Service.
type CronTrigger interface {
	Trigger(ctx context.Context, name string) ([]cron.Result, error)
}

type cronResponse struct {
	OK      bool          `json:"ok"`
	Results []cron.Result `json:"results"`
}

// CronRun runs one job, or all of them, for an external scheduler. A failed
// job answers 500 with the per-job results so the scheduler records it.
func CronRun(svc CronTrigger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cron service unavailable"))
			return
		}

		results, err := svc.Trigger(r.Context(), chi.URLParam(r, "job"))
		if err != nil && len(results) == 0 {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if err != nil {
			status = http.StatusInternalServerError
		}
		responses.WriteSuccessStatus(w, status, cronResponse{OK: err == nil, Results: results})
	}
}
