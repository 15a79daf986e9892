package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env      string `envconfig:"ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig   `envconfig:"SERVER"`
	Postgres PostgresConfig `envconfig:"POSTGRES"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	RabbitMQ RabbitMQConfig `envconfig:"RABBITMQ"`
	JWT      JWTConfig      `envconfig:"JWT"`
	Stripe   StripeConfig   `envconfig:"STRIPE"`
	Twilio   TwilioConfig   `envconfig:"TWILIO"`

	// DatabaseURL, when set, takes precedence over the POSTGRES_* parts.
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	FrontendURL     string        `envconfig:"FRONTEND_URL"`
	PaymentTimeout  time.Duration `envconfig:"PAYMENT_PROVIDER_TIMEOUT" default:"15s"`
	IdempotencyTTL  time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"2h"`
	MigrateOnStart  bool          `envconfig:"MIGRATE_ON_START" default:"false"`
	OTLPEndpoint    string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	NotifyTimeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
	DisplayTimezone string        `envconfig:"DISPLAY_TIMEZONE" default:"UTC"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

type ServerConfig struct {
	Host string `envconfig:"HOST" default:"localhost"`
	Port int    `envconfig:"PORT" default:"8080"`
}

type PostgresConfig struct {
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	Name     string `envconfig:"DB"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"5432"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"MAX_CONNS" default:"10"`
}

type RedisConfig struct {
	// Addr empty disables caching and idempotency keys.
	Addr     string `envconfig:"ADDR" default:"localhost:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

type RabbitMQConfig struct {
	// URL empty makes the server send notifications in-process.
	URL      string `envconfig:"URL"`
	Exchange string `envconfig:"EXCHANGE" default:"letspark.events"`
	Queue    string `envconfig:"QUEUE" default:"letspark.notifications"`
	Prefetch int    `envconfig:"PREFETCH" default:"10"`
}

type JWTConfig struct {
	Secret string        `envconfig:"SECRET"`
	TTL    time.Duration `envconfig:"TTL" default:"1h"`
}

type StripeConfig struct {
	SecretKey     string `envconfig:"SECRET_KEY"`
	PublicKey     string `envconfig:"PUBLIC_KEY"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	APIURL        string `envconfig:"API_URL"`

	BasicMonth    string `envconfig:"BASIC_MONTH"`
	BasicYear     string `envconfig:"BASIC_YEAR"`
	StandardMonth string `envconfig:"STANDARD_MONTH"`
	StandardYear  string `envconfig:"STANDARD_YEAR"`
	PremiumMonth  string `envconfig:"PREMIUM_MONTH"`
	PremiumYear   string `envconfig:"PREMIUM_YEAR"`

	// PriceIDs adds or overrides entries, e.g. "basic_month:price_1,gold_year:price_2".
	PriceIDs map[string]string `envconfig:"PRICE_IDS"`
}

// Prices returns the plan key to price id mapping. Unset slots are
// omitted and surface later as an invalid plan.
func (s StripeConfig) Prices() map[string]string {
	out := map[string]string{
		"basic_month":    s.BasicMonth,
		"basic_year":     s.BasicYear,
		"standard_month": s.StandardMonth,
		"standard_year":  s.StandardYear,
		"premium_month":  s.PremiumMonth,
		"premium_year":   s.PremiumYear,
	}
	for k, v := range s.PriceIDs {
		out[k] = v
	}
	for k, v := range out {
		if v == "" {
			delete(out, k)
		}
	}
	return out
}

type TwilioConfig struct {
	AccountSID  string `envconfig:"ACCOUNT_SID"`
	AuthToken   string `envconfig:"AUTH_TOKEN"`
	PhoneNumber string `envconfig:"PHONE_NUMBER"`
}

func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.PhoneNumber != ""
}

// Load reads .env when present, then the process environment. It checks
// only what every process needs.
func Load() (*Config, error) {
	const op = "config.Load"

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if _, err := time.LoadLocation(cfg.DisplayTimezone); err != nil {
		return nil, fmt.Errorf("%s: invalid DISPLAY_TIMEZONE: %w", op, err)
	}

	return &cfg, nil
}

// New loads the configuration of the API server.
func New() (*Config, error) {
	const op = "config.New"

	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	if cfg.DatabaseURL == "" {
		switch {
		case cfg.Postgres.User == "":
			return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
		case cfg.Postgres.Password == "":
			return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
		case cfg.Postgres.Name == "":
			return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
		}
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("%s: invalid SERVER_PORT %d", op, cfg.Server.Port)
	}

	return cfg, nil
}

// DSN returns DATABASE_URL or a URL assembled from the POSTGRES_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:     c.Postgres.Host + ":" + strconv.Itoa(c.Postgres.Port),
		Path:     c.Postgres.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Postgres.SSLMode),
	}
	return u.String()
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location is the zone booking times are rendered in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
