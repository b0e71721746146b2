package config

const (
	EnvPrefix = "MARKETPLACE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	OutboxTransportPubSub   = "pubsub"
	OutboxTransportRabbitMQ = "rabbitmq"
)

const (
	EnvAppEnv   = "MARKETPLACE_APP_ENV"
	EnvPort     = "MARKETPLACE_APP_PORT"
	EnvLogLevel = "MARKETPLACE_LOG_LEVEL"

	EnvDBDSN  = "MARKETPLACE_DB_DSN"
	EnvDBHost = "MARKETPLACE_DB_HOST"
	EnvDBPort = "MARKETPLACE_DB_PORT"
	EnvDBUser = "MARKETPLACE_DB_USER"
	EnvDBPass = "MARKETPLACE_DB_PASSWORD"
	EnvDBName = "MARKETPLACE_DB_NAME"

	EnvRedisURL = "MARKETPLACE_REDIS_URL"

	EnvJWTSecret  = "MARKETPLACE_JWT_SECRET"
	EnvJWTIssuer  = "MARKETPLACE_JWT_ISSUER"
	EnvJWTExpMins = "MARKETPLACE_JWT_EXPIRATION_MINUTES"

	EnvCommissionRate    = "MARKETPLACE_COMMISSION_RATE"
	EnvTaxRate           = "MARKETPLACE_TAX_RATE"
	EnvShippingThreshold = "MARKETPLACE_SHIPPING_THRESHOLD"
	EnvShippingFee       = "MARKETPLACE_SHIPPING_FEE"
	EnvReferralRate      = "MARKETPLACE_REFERRAL_RATE"

	EnvOutboxTransport = "MARKETPLACE_OUTBOX_TRANSPORT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
