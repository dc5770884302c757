package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisAddr = "STOREFRONT_REDIS_ADDR"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvPricingTaxRate      = "STOREFRONT_PRICING_TAX_RATE"
	EnvPricingFreeShipping = "STOREFRONT_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvPricingFlatShipping = "STOREFRONT_PRICING_FLAT_SHIPPING_FEE"
	EnvPricingCurrency     = "STOREFRONT_PRICING_CURRENCY"

	EnvGCPProjectID      = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
