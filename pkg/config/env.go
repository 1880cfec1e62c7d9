package config

const EnvPrefix = "PLEXO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

const (
	EnvAppEnv   = "PLEXO_APP_ENV"
	EnvPort     = "PLEXO_APP_PORT"
	EnvLogLevel = "PLEXO_LOG_LEVEL"

	EnvDBDriver      = "PLEXO_DB_DRIVER"
	EnvDBDSN         = "PLEXO_DB_DSN"
	EnvDBPath        = "PLEXO_DB_PATH"
	EnvDBAutoMigrate = "PLEXO_DB_AUTO_MIGRATE"

	EnvRedisURL = "PLEXO_REDIS_URL"

	EnvSessionDefaultRating = "PLEXO_SESSION_DEFAULT_RATING"
	EnvSessionFallbackFile  = "PLEXO_SESSION_FALLBACK_FILE"

	EnvLoginEmailLimit = "PLEXO_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT"
	EnvAllowedOrigins  = "PLEXO_HTTP_ALLOWED_ORIGINS"
)
