// Package app builds the service graph shared by the api and cron-worker binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/auth"
	"github.com/freshkit/freshkit-backend/internal/bags"
	"github.com/freshkit/freshkit-backend/internal/billing"
	"github.com/freshkit/freshkit-backend/internal/checkout"
	"github.com/freshkit/freshkit-backend/internal/content"
	"github.com/freshkit/freshkit-backend/internal/cron"
	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/export"
	"github.com/freshkit/freshkit-backend/internal/gyms"
	"github.com/freshkit/freshkit-backend/internal/issues"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/internal/plans"
	"github.com/freshkit/freshkit-backend/internal/sla"
	airtablewebhook "github.com/freshkit/freshkit-backend/internal/webhooks/airtable"
	stripewebhook "github.com/freshkit/freshkit-backend/internal/webhooks/stripe"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/auth/session"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/metrics"
	"github.com/freshkit/freshkit-backend/pkg/redis"
	"github.com/freshkit/freshkit-backend/pkg/resend"
	pkgstripe "github.com/freshkit/freshkit-backend/pkg/stripe"
	"github.com/freshkit/freshkit-backend/pkg/twilio"
)

const (
	stripeEventTTL   = 72 * time.Hour
	stripeEventScope = "stripe-webhook"
	cronLockName     = "cron"
	cronLockWorker   = "cron-worker"
)

// App holds every wired service. Close releases the Redis connection.
type App struct {
	Redis  *redis.Client
	Stripe *pkgstripe.Client

	Audit    audit.Service
	Content  content.Service
	Plans    plans.Service
	Gyms     gyms.Service
	Members  members.Service
	Drops    drops.Service
	Bags     bags.Service
	Issues   issues.Service
	Auth     auth.Service
	Checkout checkout.Service
	Billing  billing.Service
	SLA      sla.Service
	Export   export.Service
	Cron     *cron.Service

	StripeWebhook   *stripewebhook.Service
	StripeGuard     *stripewebhook.IdempotencyGuard
	AirtableWebhook *airtablewebhook.Service
}

// Build connects to Redis, Airtable, Stripe, Twilio and Resend and wires the
// services on top. Metrics register on reg.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*App, error) {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	a := &App{Redis: redisClient}
	if err := a.wire(ctx, cfg, logg, reg); err != nil {
		_ = redisClient.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) Close() error {
	if a == nil || a.Redis == nil {
		return nil
	}
	return a.Redis.Close()
}

func (a *App) wire(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) error {
	store, err := airtable.NewClient(cfg.Airtable, logg)
	if err != nil {
		return fmt.Errorf("bootstrap airtable: %w", err)
	}
	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return fmt.Errorf("bootstrap stripe: %w", err)
	}
	a.Stripe = stripeClient
	gateway := pkgstripe.NewGateway(stripeClient)
	location := cfg.App.Location()

	notifier, err := notify.NewDispatcher(notify.DispatcherParams{
		WhatsApp:   twilio.NewClient(cfg.Twilio),
		Email:      resend.NewSender(cfg.Resend, logg),
		Logger:     logg,
		Metrics:    metrics.NewNotificationMetrics(reg),
		OpsMailbox: cfg.Ops.AlertEmail,
	})
	if err != nil {
		return fmt.Errorf("notify dispatcher: %w", err)
	}

	tables := cfg.Airtable
	memberRepo := members.NewRepository(store, tables.MembersTable)
	dropRepo := drops.NewRepository(store, tables.DropsTable)
	bagRepo := bags.NewRepository(store, tables.BagsTable)

	if a.Audit, err = audit.NewService(audit.NewRepository(store, tables.AuditTable), logg); err != nil {
		return fmt.Errorf("audit service: %w", err)
	}
	if a.Content, err = content.NewService(content.ServiceParams{
		Repository: content.NewRepository(store, tables.PageContentTable),
		Logger:     logg,
		CacheTTL:   cfg.Content.CacheTTL,
	}); err != nil {
		return fmt.Errorf("content service: %w", err)
	}
	if a.Plans, err = plans.NewService(plans.ServiceParams{
		Repository: plans.NewRepository(store, tables.PlansTable),
		CacheTTL:   cfg.Content.CacheTTL,
	}); err != nil {
		return fmt.Errorf("plans service: %w", err)
	}
	if a.Gyms, err = gyms.NewService(gyms.ServiceParams{
		Repository: gyms.NewRepository(store, tables.GymsTable),
		CacheTTL:   cfg.Content.CacheTTL,
	}); err != nil {
		return fmt.Errorf("gyms service: %w", err)
	}
	if a.Members, err = members.NewService(members.ServiceParams{
		Repository:         memberRepo,
		Gyms:               a.Gyms,
		Plans:              a.Plans,
		Audit:              a.Audit,
		Logger:             logg,
		DefaultCountryCode: cfg.Login.DefaultCountryCode,
	}); err != nil {
		return fmt.Errorf("members service: %w", err)
	}
	if a.Drops, err = drops.NewService(drops.ServiceParams{
		Repository:   dropRepo,
		Members:      memberRepo,
		Plans:        a.Plans,
		Notifier:     notifier,
		Audit:        a.Audit,
		Logger:       logg,
		PickupWindow: cfg.SLA.PickupWindow,
		Location:     location,
	}); err != nil {
		return fmt.Errorf("drops service: %w", err)
	}
	if a.Bags, err = bags.NewService(bags.ServiceParams{
		Repository: bagRepo,
		Members:    memberRepo,
		Audit:      a.Audit,
		Logger:     logg,
		Location:   location,
	}); err != nil {
		return fmt.Errorf("bags service: %w", err)
	}
	if a.Issues, err = issues.NewService(issues.ServiceParams{
		Repository: issues.NewRepository(store, tables.IssuesTable),
		Members:    memberRepo,
		Notifier:   notifier,
		Audit:      a.Audit,
		Logger:     logg,
	}); err != nil {
		return fmt.Errorf("issues service: %w", err)
	}

	codes, err := session.NewCodeManager(a.Redis, cfg.Session, cfg.Login)
	if err != nil {
		return fmt.Errorf("login codes: %w", err)
	}
	if a.Auth, err = auth.NewService(auth.ServiceParams{
		Members:  memberRepo,
		Codes:    codes,
		Notifier: notifier,
		Audit:    a.Audit,
		Logger:   logg,
		App:      cfg.App,
		Session:  cfg.Session,
		Login:    cfg.Login,
		Ops:      cfg.Ops,
	}); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	if a.Checkout, err = checkout.NewService(checkout.ServiceParams{
		Gateway:            gateway,
		Plans:              a.Plans,
		Gyms:               a.Gyms,
		Logger:             logg,
		App:                cfg.App,
		Stripe:             cfg.Stripe,
		DefaultCountryCode: cfg.Login.DefaultCountryCode,
	}); err != nil {
		return fmt.Errorf("checkout service: %w", err)
	}
	if a.Billing, err = billing.NewService(billing.ServiceParams{
		Gateway: gateway,
		Members: memberRepo,
		Audit:   a.Audit,
		Logger:  logg,
		App:     cfg.App,
		Stripe:  cfg.Stripe,
	}); err != nil {
		return fmt.Errorf("billing service: %w", err)
	}
	if a.SLA, err = sla.NewService(sla.ServiceParams{
		Drops:    dropRepo,
		Issues:   a.Issues,
		Notifier: notifier,
		Logger:   logg,
		Thresholds: sla.Thresholds{
			AtRisk:       cfg.SLA.AtRiskAfter,
			Critical:     cfg.SLA.CriticalAfter,
			Breached:     cfg.SLA.BreachedAfter,
			IssueOverdue: cfg.SLA.IssueOverdue,
		},
	}); err != nil {
		return fmt.Errorf("sla service: %w", err)
	}
	if a.Export, err = export.NewService(export.ServiceParams{
		Drops:    dropRepo,
		Bags:     bagRepo,
		Members:  memberRepo,
		Logger:   logg,
		Location: location,
	}); err != nil {
		return fmt.Errorf("export service: %w", err)
	}

	if a.StripeWebhook, err = stripewebhook.NewService(stripewebhook.ServiceParams{
		Members:  memberRepo,
		Plans:    a.Plans,
		Notifier: notifier,
		Logger:   logg,
		App:      cfg.App,
	}); err != nil {
		return fmt.Errorf("stripe webhook service: %w", err)
	}
	if a.StripeGuard, err = stripewebhook.NewIdempotencyGuard(a.Redis, stripeEventTTL, stripeEventScope); err != nil {
		return fmt.Errorf("stripe webhook guard: %w", err)
	}
	if a.AirtableWebhook, err = airtablewebhook.NewService(airtablewebhook.ServiceParams{
		Drops:  a.Drops,
		Secret: cfg.Airtable.WebhookSecret,
		Logger: logg,
	}); err != nil {
		return fmt.Errorf("airtable webhook service: %w", err)
	}

	return a.wireCron(cfg, logg, reg, memberRepo)
}

func (a *App) wireCron(cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer, memberRepo members.Repository) error {
	slaJob, err := cron.NewSLACheckJob(a.SLA)
	if err != nil {
		return fmt.Errorf("sla job: %w", err)
	}
	reminderJob, err := cron.NewCollectionReminderJob(cron.CollectionReminderJobParams{
		Drops:  a.Drops,
		Logger: logg,
		After:  cfg.SLA.ReminderAfter,
	})
	if err != nil {
		return fmt.Errorf("collection reminder job: %w", err)
	}
	bagsJob, err := cron.NewUnreturnedBagsJob(cron.UnreturnedBagsJobParams{
		Bags:    a.Bags,
		Members: memberRepo,
		Logger:  logg,
	})
	if err != nil {
		return fmt.Errorf("unreturned bags job: %w", err)
	}

	lock, err := cron.NewRedisLock(a.Redis, a.Redis.LockKey(cronLockName), cronLockWorker+"-"+cfg.App.Env, 0)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	a.Cron, err = cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(slaJob, reminderJob, bagsJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}
	return nil
}
