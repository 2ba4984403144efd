package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	AppURL      string
	HTTPAddress string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Payment   PaymentConfig
	Email     EmailConfig
	Telegram  TelegramConfig
	Operator  OperatorConfig
	Delivery  DeliveryConfig
	Metrics   MetricsPushConfig
	RateLimit RateLimitConfig

	CORSAllowedOrigins []string
	PreviewStore       string
	SettingsPath       string
	SecureCookies      bool
}

type PaymentConfig struct {
	Provider        string
	APIKey          string
	APIBaseURL      string
	WebhookSecret   string
	PriceID         string
	SignatureMaxAge time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type TelegramConfig struct {
	BotToken    string
	ChatID      int64
	APIEndpoint string
}

type OperatorConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type DeliveryConfig struct {
	Workers       int
	QueueSize     int
	MaxAttempts   int
	SweepInterval time.Duration
	SweepBatch    int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "menusready"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		AppURL:      strings.TrimRight(getenv("APP_URL", "https://menusready.com"), "/"),
		HTTPAddress: getenv("HTTP_ADDRESS", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "menusready"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "menusready.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Payment: PaymentConfig{
			Provider:        strings.ToLower(getenv("PAYMENT_PROVIDER", "stripe")),
			APIKey:          strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			APIBaseURL:      strings.TrimRight(getenv("STRIPE_API_BASE_URL", "https://api.stripe.com"), "/"),
			WebhookSecret:   strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			PriceID:         strings.TrimSpace(getenv("STRIPE_PRICE_ONETIME", "")),
			SignatureMaxAge: getenvDuration("STRIPE_SIGNATURE_MAX_AGE", 5*time.Minute),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "Menus Ready <hello@menusready.com>"),
		},
		Telegram: TelegramConfig{
			BotToken:    strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
			ChatID:      getenvInt64("TELEGRAM_CHAT_ID", 0),
			APIEndpoint: strings.TrimSpace(getenv("TELEGRAM_API_ENDPOINT", "")),
		},
		Operator: OperatorConfig{
			JWTSecret: strings.TrimSpace(getenv("OPERATOR_JWT_SECRET", "")),
			TokenTTL:  getenvDuration("OPERATOR_TOKEN_TTL", 8*time.Hour),
		},
		Delivery: DeliveryConfig{
			Workers:       getenvInt("DELIVERY_WORKERS", 2),
			QueueSize:     getenvInt("DELIVERY_QUEUE_SIZE", 64),
			MaxAttempts:   getenvInt("DELIVERY_MAX_ATTEMPTS", 6),
			SweepInterval: getenvDuration("DELIVERY_SWEEP_INTERVAL", time.Minute),
			SweepBatch:    getenvInt("DELIVERY_SWEEP_BATCH", 25),
		},
		Metrics: MetricsPushConfig{
			Exporter:  strings.ToLower(getenv("METRICS_PUSH_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getenvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getenvInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 30),
			Burst:             getenvInt("RATE_LIMIT_BURST", 10),
		},

		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "https://menusready.com")),
		PreviewStore:       strings.ToLower(getenv("PREVIEW_EXPIRY_STORE", "database")),
		SettingsPath:       getenv("PUBLICATION_SETTINGS_PATH", ""),
		SecureCookies:      getenvBool("PREVIEW_COOKIE_SECURE", environment == "production"),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// MenuURL is the canonical public URL for a menu.
func (c Config) MenuURL(slug string) string {
	return c.AppURL + "/menu/" + slug
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
