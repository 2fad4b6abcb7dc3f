package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshkit/freshkit-backend/api/controllers"
	opscontrollers "github.com/freshkit/freshkit-backend/api/controllers/ops"
	webhookcontrollers "github.com/freshkit/freshkit-backend/api/controllers/webhooks"
	"github.com/freshkit/freshkit-backend/api/middleware"
	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/auth"
	"github.com/freshkit/freshkit-backend/internal/bags"
	"github.com/freshkit/freshkit-backend/internal/billing"
	"github.com/freshkit/freshkit-backend/internal/checkout"
	"github.com/freshkit/freshkit-backend/internal/content"
	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/export"
	"github.com/freshkit/freshkit-backend/internal/gyms"
	"github.com/freshkit/freshkit-backend/internal/issues"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/internal/plans"
	"github.com/freshkit/freshkit-backend/internal/sla"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/metrics"
	"github.com/freshkit/freshkit-backend/pkg/redis"
)

// Store is the Redis surface the HTTP layer needs; *redis.Client satisfies it.
type Store interface {
	redis.Pinger
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps carries everything NewRouter mounts. Nil services answer 500 on their
// routes rather than panicking.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Store       Store
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Content  content.Service
	Plans    plans.Service
	Gyms     gyms.Service
	Checkout checkout.Service
	Auth     auth.Service
	Members  members.Service
	Drops    drops.Service
	Bags     bags.Service
	Issues   issues.Service
	Billing  billing.Service
	Audit    audit.Service
	SLA      sla.Service
	Export   export.Service
	Cron     controllers.CronTrigger

	StripeClient    StripeSigner
	StripeWebhook   webhookcontrollers.StripeWebhookService
	StripeGuard     StripeEventGuard
	AirtableWebhook webhookcontrollers.AirtableWebhookService
}

// StripeSigner is satisfied by *stripe.Client.
type StripeSigner interface {
	SigningSecret() string
}

// StripeEventGuard is satisfied by *stripewebhook.IdempotencyGuard.
type StripeEventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	requestCodePolicy := middleware.NewAuthRateLimitPolicy(
		"request-code",
		cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.IPLimit,
		cfg.AuthRateLimit.PhoneLimit,
		cfg.Login.DefaultCountryCode,
	)
	verifyPolicy := middleware.NewAuthRateLimitPolicy(
		"verify",
		cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.IPLimit,
		cfg.AuthRateLimit.PhoneLimit,
		cfg.Login.DefaultCountryCode,
	)
	idempotency := middleware.Idempotency(d.Store, logg)
	secureCookies := cfg.Session.CookieSecure

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Store))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/content/{page}", controllers.PublicContent(d.Content, logg))
		r.Get("/plans", controllers.PublicPlans(d.Plans, logg))
		r.Get("/gyms", controllers.PublicGyms(d.Gyms, logg))
	})

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.With(idempotency).Post("/", controllers.Checkout(d.Checkout, logg))
		r.Get("/sessions/{sessionId}", controllers.CheckoutSessionStatus(d.Checkout, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(requestCodePolicy, d.Store, logg)).Post("/request-code", controllers.AuthRequestCode(d.Auth, logg))
		r.With(middleware.AuthRateLimit(verifyPolicy, d.Store, logg)).Post("/verify", controllers.AuthVerify(d.Auth, cfg.Session, logg))
		r.Get("/magic", controllers.AuthMagic(d.Auth, cfg.Session, cfg.App, logg))
		r.Post("/logout", controllers.AuthLogout(cfg.Session))
		r.With(middleware.MemberAuth(cfg.Session, logg)).Get("/session", controllers.AuthSession(d.Auth, logg))
	})

	r.Route("/api/v1/portal", func(r chi.Router) {
		r.Use(middleware.MemberAuth(cfg.Session, logg))
		r.Use(idempotency)

		r.Get("/me", controllers.PortalProfile(d.Members, logg))
		r.Patch("/me", controllers.PortalUpdateProfile(d.Members, logg))
		r.Get("/drops", controllers.PortalDrops(d.Drops, logg))
		r.Post("/drops", controllers.PortalCreateDrop(d.Drops, logg))
		r.Get("/issues", controllers.PortalIssues(d.Issues, logg))
		r.Post("/issues", controllers.PortalCreateIssue(d.Issues, logg))
		r.Route("/subscription", func(r chi.Router) {
			r.Post("/pause", controllers.PortalSubscription(d.Billing, controllers.SubscriptionPause, logg))
			r.Post("/resume", controllers.PortalSubscription(d.Billing, controllers.SubscriptionResume, logg))
			r.Post("/cancel", controllers.PortalSubscription(d.Billing, controllers.SubscriptionCancel, logg))
		})
		r.Post("/billing-portal", controllers.PortalBillingSession(d.Billing, logg))
	})

	r.Route("/api/v1/ops", func(r chi.Router) {
		r.Post("/login", opscontrollers.Login(d.Auth, cfg.Ops, secureCookies, logg))
		r.Post("/logout", opscontrollers.Logout(cfg.Ops, secureCookies))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OpsAuth(cfg.Ops, logg))
			r.Use(idempotency)

			r.Route("/drops", func(r chi.Router) {
				r.Get("/", opscontrollers.ListDrops(d.Drops, logg))
				r.Post("/", opscontrollers.CreateDrop(d.Drops, logg))
				r.Post("/check-in", opscontrollers.CheckIn(d.Drops, logg))
				r.Get("/{id}", opscontrollers.GetDrop(d.Drops, logg))
				r.Post("/{id}/status", opscontrollers.UpdateDropStatus(d.Drops, logg))
			})
			r.Route("/bags", func(r chi.Router) {
				r.Get("/", opscontrollers.ListBags(d.Bags, logg))
				r.Post("/", opscontrollers.ProvisionBag(d.Bags, logg))
				r.Post("/{bagNumber}/actions", opscontrollers.BagAction(d.Bags, logg))
			})
			r.Route("/members", func(r chi.Router) {
				r.Get("/", opscontrollers.ListMembers(d.Members, logg))
				r.Post("/", opscontrollers.CreateMember(d.Members, logg))
				r.Get("/{id}", opscontrollers.GetMember(d.Members, logg))
				r.Patch("/{id}", opscontrollers.UpdateMember(d.Members, logg))
				r.Post("/{id}/magic-link", opscontrollers.SendMagicLink(d.Auth, logg))
			})
			r.Route("/issues", func(r chi.Router) {
				r.Get("/", opscontrollers.ListIssues(d.Issues, logg))
				r.Post("/", opscontrollers.CreateIssue(d.Issues, logg))
				r.Patch("/{id}", opscontrollers.UpdateIssue(d.Issues, logg))
			})
			r.Get("/audit", opscontrollers.AuditLog(d.Audit, logg))
			r.Get("/sla", opscontrollers.SLAReport(d.SLA, logg))
			r.Get("/stats", opscontrollers.Stats(d.Drops, d.Bags, logg))
			r.Get("/export/{kind}.xlsx", opscontrollers.Export(d.Export, logg))
		})
	})

	r.Route("/api/cron", func(r chi.Router) {
		r.Use(middleware.CronAuth(cfg.Cron.Secret, logg))
		r.Get("/{job}", controllers.CronRun(d.Cron, logg))
		r.Post("/{job}", controllers.CronRun(d.Cron, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.StripeWebhook, d.StripeClient, d.StripeGuard, logg))
		r.Post("/airtable", webhookcontrollers.AirtableWebhook(d.AirtableWebhook, logg))
	})

	return r
}
