package ops

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/internal/export"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

// Export streams /export/{kind}.xlsx as a workbook download.
func Export(svc export.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "export service unavailable"))
			return
		}

		raw := chi.URLParam(r, "kind")
		kind, err := enums.ParseExportKind(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown export").
				WithDetails(map[string]any{"kind": raw}))
			return
		}

		file, err := svc.Export(r.Context(), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logg.Info(logg.WithField(r.Context(), "export_kind", string(kind)), "ops.export_generated")
		responses.WriteFile(w, file.Name, export.ContentType, file.Data)
	}
}
