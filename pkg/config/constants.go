package config

// EnvPrefix is intentionally empty: every field carries its fully-qualified
// environment variable in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	StatusBackendMemory = "memory"
	StatusBackendRedis  = "redis"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv    = "STREAMHIVE_APP_ENV"
	EnvPort      = "STREAMHIVE_APP_PORT"
	EnvJWTSecret = "STREAMHIVE_JWT_SECRET"
	EnvProjectID = "STREAMHIVE_GCP_PROJECT_ID"
	EnvRedisURL  = "STREAMHIVE_REDIS_URL"
	EnvRedisAddr = "STREAMHIVE_REDIS_ADDR"
)
