package controllers

import (
	"net/http"
	"strings"

	"github.com/freshkit/freshkit-backend/api/middleware"
	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/api/validators"
	"github.com/freshkit/freshkit-backend/internal/auth"
	"github.com/freshkit/freshkit-backend/pkg/config"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

const (
	portalPath      = "/portal"
	linkExpiredPath = "/login?error=link_expired"
)

// AuthRequestCode sends a login code and magic link to a member's phone.
func AuthRequestCode(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.RequestCodeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RequestCode(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthVerify exchanges a login code for the portal session cookie.
func AuthVerify(svc auth.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.VerifyCodeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VerifyCode(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setCookie(w, cfg.CookieName, result.Token, result.ExpiresAt, cfg.CookieSecure)
		responses.WriteSuccess(w, result)
	}
}

// AuthMagic redeems a magic link from WhatsApp or email. Browsers land here
// directly, so both outcomes redirect into the site.
func AuthMagic(svc auth.Service, cfg config.SessionConfig, app config.AppConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		result, err := svc.VerifyMagicLink(r.Context(), token)
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "auth.magic_link_rejected")
			}
			if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) || pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				http.Redirect(w, r, app.PortalURL(linkExpiredPath), http.StatusSeeOther)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setCookie(w, cfg.CookieName, result.Token, result.ExpiresAt, cfg.CookieSecure)
		http.Redirect(w, r, app.PortalURL(portalPath), http.StatusSeeOther)
	}
}

// AuthLogout clears the portal session cookie. Sessions are stateless JWTs,
// so there is nothing to revoke server-side.
func AuthLogout(cfg config.SessionConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearCookie(w, cfg.CookieName, cfg.CookieSecure)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthSession returns the member behind the current session cookie.
func AuthSession(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		member, err := svc.Session(r.Context(), middleware.MemberIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"member": member})
	}
}
