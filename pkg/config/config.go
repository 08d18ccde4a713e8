package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Gateway       GatewayConfig
	Sweeper       SweeperConfig
	Notifications NotificationsConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NELINE_APP_ENV" required:"true"`
	Port         string `envconfig:"NELINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NELINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NELINE_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"NELINE_FRONTEND_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"NELINE_DB_DSN"`
	Driver string `envconfig:"NELINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NELINE_DB_HOST"`
	LegacyPort     int    `envconfig:"NELINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NELINE_DB_USER"`
	LegacyPassword string `envconfig:"NELINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"NELINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"NELINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NELINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NELINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NELINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NELINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NELINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NELINE_REDIS_ADDR"`
	Password     string        `envconfig:"NELINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"NELINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NELINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NELINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NELINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NELINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NELINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NELINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NELINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NELINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NELINE_AUTO_MIGRATE" default:"false"`
	// ReleaseOnPaymentFailure returns reserved units to the pool when the
	// gateway reports a failed or rejected payment.
	ReleaseOnPaymentFailure bool `envconfig:"NELINE_RELEASE_ON_PAYMENT_FAILURE" default:"false"`
}

// GatewayConfig holds the payment intent provider settings.
type GatewayConfig struct {
	PaymentURI             string        `envconfig:"NELINE_GATEWAY_PAYMENT_URI" default:"https://api.fintoc.com/v1/payment_intents"`
	APIKey                 string        `envconfig:"NELINE_GATEWAY_API_KEY"`
	Currency               string        `envconfig:"NELINE_GATEWAY_CURRENCY" default:"clp"`
	Timeout                time.Duration `envconfig:"NELINE_GATEWAY_TIMEOUT" default:"10s"`
	RecipientHolderID      string        `envconfig:"NELINE_GATEWAY_RECIPIENT_HOLDER_ID"`
	RecipientNumber        string        `envconfig:"NELINE_GATEWAY_RECIPIENT_NUMBER"`
	RecipientType          string        `envconfig:"NELINE_GATEWAY_RECIPIENT_TYPE" default:"checking_account"`
	RecipientInstitutionID string        `envconfig:"NELINE_GATEWAY_RECIPIENT_INSTITUTION_ID"`
	WebhookSecret          string        `envconfig:"NELINE_GATEWAY_WEBHOOK_SECRET"`
	// WebhookTolerance bounds the signature timestamp age. Zero disables the check.
	WebhookTolerance time.Duration `envconfig:"NELINE_GATEWAY_WEBHOOK_TOLERANCE" default:"0s"`
}

type SweeperConfig struct {
	Interval     time.Duration `envconfig:"NELINE_SWEEPER_INTERVAL" default:"1m"`
	ExpiryWindow time.Duration `envconfig:"NELINE_SWEEPER_EXPIRY_WINDOW" default:"15m"`
	BatchSize    int           `envconfig:"NELINE_SWEEPER_BATCH_SIZE" default:"100"`
	LockTTL      time.Duration `envconfig:"NELINE_SWEEPER_LOCK_TTL" default:"5m"`
}

type NotificationsConfig struct {
	KafkaBrokers []string `envconfig:"NELINE_KAFKA_BROKERS"`
	Topic        string   `envconfig:"NELINE_NOTIFICATIONS_TOPIC" default:"neline-purchase-notifications"`
	Workers      int      `envconfig:"NELINE_NOTIFICATIONS_WORKERS" default:"4"`
	QueueSize    int      `envconfig:"NELINE_NOTIFICATIONS_QUEUE_SIZE" default:"256"`
}

// Enabled reports whether a broker is configured for notification delivery.
func (n NotificationsConfig) Enabled() bool {
	for _, broker := range n.KafkaBrokers {
		if strings.TrimSpace(broker) != "" {
			return true
		}
	}
	return false
}

// RateLimitConfig throttles guest checkout, the only unauthenticated write.
type RateLimitConfig struct {
	GuestCheckoutWindow     time.Duration `envconfig:"NELINE_RATE_LIMIT_GUEST_WINDOW" default:"1m"`
	GuestCheckoutIPLimit    int           `envconfig:"NELINE_RATE_LIMIT_GUEST_IP" default:"20"`
	GuestCheckoutEmailLimit int           `envconfig:"NELINE_RATE_LIMIT_GUEST_EMAIL" default:"5"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"NELINE_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
