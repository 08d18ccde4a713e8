package config

const EnvPrefix = "NELINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "NELINE_APP_ENV"
	EnvPort     = "NELINE_APP_PORT"
	EnvLogLevel = "NELINE_LOG_LEVEL"

	EnvDBDSN  = "NELINE_DB_DSN"
	EnvDBHost = "NELINE_DB_HOST"
	EnvDBUser = "NELINE_DB_USER"
	EnvDBName = "NELINE_DB_NAME"

	EnvRedisURL = "NELINE_REDIS_URL"

	EnvJWTSecret  = "NELINE_JWT_SECRET"
	EnvJWTIssuer  = "NELINE_JWT_ISSUER"
	EnvJWTExpMins = "NELINE_JWT_EXPIRATION_MINUTES"

	EnvReleaseOnPaymentFailure = "NELINE_RELEASE_ON_PAYMENT_FAILURE"

	EnvGatewayAPIKey        = "NELINE_GATEWAY_API_KEY"
	EnvGatewayTimeout       = "NELINE_GATEWAY_TIMEOUT"
	EnvGatewayWebhookSecret = "NELINE_GATEWAY_WEBHOOK_SECRET"

	EnvSweeperBatchSize = "NELINE_SWEEPER_BATCH_SIZE"

	EnvKafkaBrokers = "NELINE_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
