package config

const EnvPrefix = "FRESHKIT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "FRESHKIT_APP_ENV"
	EnvPort             = "FRESHKIT_APP_PORT"
	EnvSiteURL          = "FRESHKIT_SITE_URL"
	EnvCORSOrigins      = "FRESHKIT_CORS_ORIGINS"
	EnvRedisURL         = "FRESHKIT_REDIS_URL"
	EnvSessionSecret    = "FRESHKIT_SESSION_SECRET"
	EnvSessionTTL       = "FRESHKIT_SESSION_TTL"
	EnvOpsPassword      = "FRESHKIT_OPS_PASSWORD"
	EnvOpsPasswordHash  = "FRESHKIT_OPS_PASSWORD_HASH"
	EnvOpsToken         = "FRESHKIT_OPS_TOKEN"
	EnvCronSecret       = "FRESHKIT_CRON_SECRET"
	EnvAirtableAPIKey   = "FRESHKIT_AIRTABLE_API_KEY"
	EnvAirtableBaseID   = "FRESHKIT_AIRTABLE_BASE_ID"
	EnvSLAAtRiskAfter   = "FRESHKIT_SLA_AT_RISK_AFTER"
	EnvSLACriticalAfter = "FRESHKIT_SLA_CRITICAL_AFTER"
	EnvSLABreachedAfter = "FRESHKIT_SLA_BREACHED_AFTER"
)
