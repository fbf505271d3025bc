package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// NodeID seeds the snowflake generator; replicas must not share one.
	NodeID int64

	OTLPEndpoint string

	// Database carries the privileged store credentials. Only the persistence
	// layer receives it.
	Database DatabaseConfig

	// Identity carries the restricted token verification settings used to
	// resolve the caller of a bearer-authenticated request.
	Identity IdentityConfig

	Saweria    SaweriaConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	ChangeFeed ChangeFeedConfig

	PolicyFile string
}

type DatabaseConfig struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type IdentityConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

type SaweriaConfig struct {
	// StreamKey is the shared secret the processor signs callbacks with.
	StreamKey   string
	DonationURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled bool

	WebhookRate      float64
	WebhookBurst     int
	APICheckoutRate  float64
	APICheckoutBurst int

	WithdrawalLockTTLSeconds int
}

type ChangeFeedConfig struct {
	RedisRelay bool
	Channel    string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "kograph"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		NodeID:       int64(getenvInt("NODE_ID", 1)),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Database: DatabaseConfig{
			Type:            getenv("DATABASE_TYPE", "postgres"),
			Host:            getenv("DATABASE_HOST", "localhost"),
			Port:            getenv("DATABASE_PORT", "5432"),
			Name:            getenv("DATABASE_NAME", "postgres"),
			User:            getenv("DATABASE_USER", "postgres"),
			Password:        getenv("DATABASE_PASSWORD", ""),
			SSLMode:         getenv("DATABASE_SSLMODE", "disable"),
			MaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
			MaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
			ConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		},
		Identity: IdentityConfig{
			JWTSecret: strings.TrimSpace(getenv("IDENTITY_JWT_SECRET", "")),
			Issuer:    strings.TrimSpace(getenv("IDENTITY_JWT_ISSUER", "")),
			Audience:  strings.TrimSpace(getenv("IDENTITY_JWT_AUDIENCE", "")),
		},
		Saweria: SaweriaConfig{
			StreamKey:   strings.TrimSpace(getenv("SAWERIA_STREAM_KEY", "")),
			DonationURL: strings.TrimSpace(getenv("SAWERIA_DONATION_URL", "")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:                  getenvBool("RATE_LIMIT_ENABLED", false),
			WebhookRate:              getenvFloat("RATE_LIMIT_WEBHOOK_RATE", 20),
			WebhookBurst:             getenvInt("RATE_LIMIT_WEBHOOK_BURST", 40),
			APICheckoutRate:          getenvFloat("RATE_LIMIT_API_CHECKOUT_RATE", 5),
			APICheckoutBurst:         getenvInt("RATE_LIMIT_API_CHECKOUT_BURST", 10),
			WithdrawalLockTTLSeconds: getenvInt("WITHDRAWAL_LOCK_TTL_SECONDS", 10),
		},
		ChangeFeed: ChangeFeedConfig{
			RedisRelay: getenvBool("CHANGEFEED_REDIS_RELAY", false),
			Channel:    getenv("CHANGEFEED_CHANNEL", "kograph:changes"),
		},
		PolicyFile: getenv("POLICY_FILE", ""),
	}
}

// RedisRequired reports whether any component needs the shared Redis client.
func (c Config) RedisRequired() bool {
	return c.RateLimit.Enabled || c.ChangeFeed.RedisRelay
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
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

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
