package ops

import (
	"net/http"
	"time"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/api/validators"
	"github.com/freshkit/freshkit-backend/internal/auth"
	"github.com/freshkit/freshkit-backend/pkg/config"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

const cookieTTL = 30 * 24 * time.Hour

// Login checks the shared dashboard password and sets the ops cookie.
func Login(svc auth.Service, cfg config.OpsConfig, secure bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.OpsLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.OpsLogin(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    result.Token,
			Path:     "/",
			MaxAge:   int(cookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
		responses.WriteSuccess(w, map[string]string{"status": "logged_in"})
	}
}

func Logout(cfg config.OpsConfig, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
