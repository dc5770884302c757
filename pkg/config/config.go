package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Pricing       PricingConfig
	Checkout      CheckoutConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	ReadTimeout     time.Duration `envconfig:"STOREFRONT_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"STOREFRONT_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"STOREFRONT_HTTP_SHUTDOWN_TIMEOUT" default:"20s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// StatementTimeout bounds every statement issued on a pooled connection.
	StatementTimeout time.Duration `envconfig:"STOREFRONT_DB_STATEMENT_TIMEOUT" default:"15s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"STOREFRONT_REDIS_KEY_PREFIX" default:"sf"`

	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow  time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// PricingConfig holds the default store pricing policy.
type PricingConfig struct {
	TaxRate               string `envconfig:"STOREFRONT_PRICING_TAX_RATE" default:"0.08"`
	FreeShippingThreshold int64  `envconfig:"STOREFRONT_PRICING_FREE_SHIPPING_THRESHOLD" default:"7500"`
	FlatShippingFee       int64  `envconfig:"STOREFRONT_PRICING_FLAT_SHIPPING_FEE" default:"999"`
	Currency              string `envconfig:"STOREFRONT_PRICING_CURRENCY" default:"USD"`
}

// TaxRateDecimal parses TaxRate. Load has already validated it.
func (p PricingConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (p PricingConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvPricingTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be in [0, 1)", EnvPricingTaxRate)
	}
	if p.FreeShippingThreshold < 0 {
		return fmt.Errorf("%s must not be negative", EnvPricingFreeShipping)
	}
	if p.FlatShippingFee < 0 {
		return fmt.Errorf("%s must not be negative", EnvPricingFlatShipping)
	}
	if _, err := enums.ParseCurrency(p.Currency); err != nil {
		return fmt.Errorf("%s: %w", EnvPricingCurrency, err)
	}
	return nil
}

type CheckoutConfig struct {
	OrderNumberAttempts int `envconfig:"STOREFRONT_CHECKOUT_ORDER_NUMBER_ATTEMPTS" default:"5"`
}

type EventingConfig struct {
	PublishRatePerSecond float64 `envconfig:"STOREFRONT_EVENTING_PUBLISH_RATE" default:"50"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-orders"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig drives cmd/cron-worker. Retention ages are in days.
type CronConfig struct {
	Interval            time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"55m"`
	OutboxRetentionDays int           `envconfig:"STOREFRONT_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	StaleCartDays       int           `envconfig:"STOREFRONT_CRON_STALE_CART_DAYS" default:"30"`
	StaleCartBatchSize  int           `envconfig:"STOREFRONT_CRON_STALE_CART_BATCH_SIZE" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
