package middleware

import (
	"net/http"
	"strings"

	"github.com/freshkit/freshkit-backend/api/responses"
	"github.com/freshkit/freshkit-backend/internal/audit"
	pkgAuth "github.com/freshkit/freshkit-backend/pkg/auth"
	"github.com/freshkit/freshkit-backend/pkg/config"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/security"
)

// MemberAuth validates the portal session cookie (or a bearer token) and seeds
// the request context with the member.
func MemberAuth(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := credential(r, cfg.CookieName)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
				return
			}

			claims, err := pkgAuth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session"))
				return
			}

			ctx := WithMemberID(r.Context(), claims.MemberID)
			ctx = audit.WithActor(ctx, audit.MemberActor(claims.MemberID))
			if logg != nil {
				ctx = logg.WithMemberID(ctx, claims.MemberID)
				ctx = logg.WithActor(ctx, audit.MemberActor(claims.MemberID))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OpsAuth accepts the static ops token from the ops cookie or a bearer header.
func OpsAuth(cfg config.OpsConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := credential(r, cfg.CookieName)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if cfg.Token == "" || !security.EqualSecret(token, cfg.Token) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
				return
			}

			ctx := WithOps(r.Context())
			ctx = audit.WithActor(ctx, audit.ActorOps)
			if logg != nil {
				ctx = logg.WithActor(ctx, audit.ActorOps)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CronAuth guards the cron endpoints with the shared cron secret.
func CronAuth(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "cron secret not configured"))
				return
			}
			token := bearerToken(r)
			if token == "" || !security.EqualSecret(token, secret) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid cron credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func credential(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			if value := strings.TrimSpace(cookie.Value); value != "" {
				return value
			}
		}
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
