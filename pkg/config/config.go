package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Redis         RedisConfig
	Session       SessionConfig
	Login         LoginConfig
	Ops           OpsConfig
	Cron          CronConfig
	AuthRateLimit AuthRateLimitConfig
	Airtable      AirtableConfig
	Stripe        StripeConfig
	Twilio        TwilioConfig
	Resend        ResendConfig
	Content       ContentConfig
	SLA           SLAConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Ops.validate(); err != nil {
		return nil, err
	}
	if err := cfg.SLA.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FRESHKIT_APP_ENV" required:"true"`
	Port         string   `envconfig:"FRESHKIT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"FRESHKIT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FRESHKIT_LOG_WARN_STACK" default:"false"`
	SiteURL      string   `envconfig:"FRESHKIT_SITE_URL" required:"true"`
	CORSOrigins  []string `envconfig:"FRESHKIT_CORS_ORIGINS"`
	Timezone     string   `envconfig:"FRESHKIT_TIMEZONE" default:"Europe/London"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	if strings.TrimSpace(a.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PortalURL joins the site URL with a path.
func (a AppConfig) PortalURL(path string) string {
	return strings.TrimRight(a.SiteURL, "/") + "/" + strings.TrimLeft(path, "/")
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESHKIT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FRESHKIT_REDIS_ADDR"`
	Password     string        `envconfig:"FRESHKIT_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRESHKIT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRESHKIT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESHKIT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESHKIT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESHKIT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESHKIT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig drives the member session JWT and its cookie.
type SessionConfig struct {
	Secret       string        `envconfig:"FRESHKIT_SESSION_SECRET" required:"true"`
	Issuer       string        `envconfig:"FRESHKIT_SESSION_ISSUER" default:"freshkit"`
	TTL          time.Duration `envconfig:"FRESHKIT_SESSION_TTL" default:"720h"`
	CookieName   string        `envconfig:"FRESHKIT_SESSION_COOKIE" default:"fk_session"`
	CookieSecure bool          `envconfig:"FRESHKIT_COOKIE_SECURE" default:"true"`
}

type LoginConfig struct {
	CodeTTL            time.Duration `envconfig:"FRESHKIT_LOGIN_CODE_TTL" default:"10m"`
	CodeMaxAttempts    int           `envconfig:"FRESHKIT_LOGIN_CODE_MAX_ATTEMPTS" default:"5"`
	MagicLinkTTL       time.Duration `envconfig:"FRESHKIT_MAGIC_LINK_TTL" default:"24h"`
	DefaultCountryCode string        `envconfig:"FRESHKIT_DEFAULT_COUNTRY_CODE" default:"44"`
}

type OpsConfig struct {
	Password     string `envconfig:"FRESHKIT_OPS_PASSWORD"`
	PasswordHash string `envconfig:"FRESHKIT_OPS_PASSWORD_HASH"`
	Token        string `envconfig:"FRESHKIT_OPS_TOKEN" required:"true"`
	CookieName   string `envconfig:"FRESHKIT_OPS_COOKIE" default:"fk_ops"`
	AlertEmail   string `envconfig:"FRESHKIT_OPS_ALERT_EMAIL"`
}

func (o OpsConfig) validate() error {
	if strings.TrimSpace(o.Password) == "" && strings.TrimSpace(o.PasswordHash) == "" {
		return fmt.Errorf("either %s or %s is required", EnvOpsPassword, EnvOpsPasswordHash)
	}
	return nil
}

type CronConfig struct {
	Secret   string        `envconfig:"FRESHKIT_CRON_SECRET" required:"true"`
	Interval time.Duration `envconfig:"FRESHKIT_CRON_INTERVAL" default:"1h"`
}

type AuthRateLimitConfig struct {
	Window     time.Duration `envconfig:"FRESHKIT_AUTH_RATE_LIMIT_WINDOW" default:"10m"`
	IPLimit    int           `envconfig:"FRESHKIT_AUTH_RATE_LIMIT_IP_LIMIT" default:"20"`
	PhoneLimit int           `envconfig:"FRESHKIT_AUTH_RATE_LIMIT_PHONE_LIMIT" default:"5"`
}

type AirtableConfig struct {
	APIKey        string        `envconfig:"FRESHKIT_AIRTABLE_API_KEY" required:"true"`
	BaseID        string        `envconfig:"FRESHKIT_AIRTABLE_BASE_ID" required:"true"`
	BaseURL       string        `envconfig:"FRESHKIT_AIRTABLE_BASE_URL" default:"https://api.airtable.com/v0"`
	Timeout       time.Duration `envconfig:"FRESHKIT_AIRTABLE_TIMEOUT" default:"15s"`
	WebhookSecret string        `envconfig:"FRESHKIT_AIRTABLE_WEBHOOK_SECRET"`

	MembersTable     string `envconfig:"FRESHKIT_AIRTABLE_MEMBERS_TABLE" default:"Members"`
	DropsTable       string `envconfig:"FRESHKIT_AIRTABLE_DROPS_TABLE" default:"Drops"`
	BagsTable        string `envconfig:"FRESHKIT_AIRTABLE_BAGS_TABLE" default:"Bags"`
	GymsTable        string `envconfig:"FRESHKIT_AIRTABLE_GYMS_TABLE" default:"Gyms"`
	IssuesTable      string `envconfig:"FRESHKIT_AIRTABLE_ISSUES_TABLE" default:"Issues"`
	PlansTable       string `envconfig:"FRESHKIT_AIRTABLE_PLANS_TABLE" default:"Plans"`
	PageContentTable string `envconfig:"FRESHKIT_AIRTABLE_PAGE_CONTENT_TABLE" default:"Page Content"`
	AuditTable       string `envconfig:"FRESHKIT_AIRTABLE_AUDIT_TABLE" default:"Audit Log"`
}

type StripeConfig struct {
	APIKey          string `envconfig:"FRESHKIT_STRIPE_API_KEY"`
	Secret          string `envconfig:"FRESHKIT_STRIPE_SECRET"`
	Env             string `envconfig:"FRESHKIT_STRIPE_ENV" default:"test"`
	SuccessURL      string `envconfig:"FRESHKIT_STRIPE_SUCCESS_URL"`
	CancelURL       string `envconfig:"FRESHKIT_STRIPE_CANCEL_URL"`
	PortalReturnURL string `envconfig:"FRESHKIT_STRIPE_PORTAL_RETURN_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type TwilioConfig struct {
	AccountSID   string        `envconfig:"FRESHKIT_TWILIO_ACCOUNT_SID"`
	AuthToken    string        `envconfig:"FRESHKIT_TWILIO_AUTH_TOKEN"`
	WhatsAppFrom string        `envconfig:"FRESHKIT_TWILIO_WHATSAPP_FROM"`
	BaseURL      string        `envconfig:"FRESHKIT_TWILIO_BASE_URL" default:"https://api.twilio.com"`
	Timeout      time.Duration `envconfig:"FRESHKIT_TWILIO_TIMEOUT" default:"10s"`
}

// Enabled reports whether WhatsApp delivery is configured.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.WhatsAppFrom != ""
}

type ResendConfig struct {
	APIKey string `envconfig:"FRESHKIT_RESEND_API_KEY"`
	From   string `envconfig:"FRESHKIT_RESEND_FROM" default:"FreshKit <hello@freshkit.co.uk>"`
}

type ContentConfig struct {
	CacheTTL time.Duration `envconfig:"FRESHKIT_CONTENT_CACHE_TTL" default:"60s"`
}

type SLAConfig struct {
	AtRiskAfter   time.Duration `envconfig:"FRESHKIT_SLA_AT_RISK_AFTER" default:"36h"`
	CriticalAfter time.Duration `envconfig:"FRESHKIT_SLA_CRITICAL_AFTER" default:"48h"`
	BreachedAfter time.Duration `envconfig:"FRESHKIT_SLA_BREACHED_AFTER" default:"72h"`
	IssueOverdue  time.Duration `envconfig:"FRESHKIT_SLA_ISSUE_OVERDUE_AFTER" default:"48h"`
	PickupWindow  time.Duration `envconfig:"FRESHKIT_PICKUP_WINDOW" default:"168h"`
	ReminderAfter time.Duration `envconfig:"FRESHKIT_REMINDER_AFTER" default:"48h"`
}

func (s SLAConfig) validate() error {
	if s.AtRiskAfter <= 0 || s.CriticalAfter <= 0 || s.BreachedAfter <= 0 {
		return fmt.Errorf("sla thresholds must be positive")
	}
	if !(s.AtRiskAfter < s.CriticalAfter && s.CriticalAfter < s.BreachedAfter) {
		return fmt.Errorf("sla thresholds must increase: at_risk < critical < breached")
	}
	return nil
}
