package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	PostgresURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	ListingCacheTTL time.Duration

	RateLimit RateLimitConfig
	Mpesa     MpesaConfig
	Mail      MailConfig

	TracingEnabled bool
	JaegerEndpoint string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type MpesaConfig struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	PassKey         string
	CallbackURL     string
	TransactionType string
	Timeout         time.Duration
}

type MailConfig struct {
	ResendAPIKey string
	BookingsFrom string
	PaymentsFrom string
}

// Load reads the environment, after applying an optional .env file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Config{
		Env:  envStr("APP_ENV", "development"),
		Port: envStr("APP_PORT", "8080"),

		PostgresURL: os.Getenv("POSTGRES_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		JWTSecret: os.Getenv("JWT_SECRET"),

		ListingCacheTTL: envDur("LISTING_CACHE_TTL", 5*time.Minute),

		RateLimit: RateLimitConfig{
			Enabled: envBool("RATE_LIMIT_ENABLED", true),
			RPS:     envFloat("RATE_LIMIT_RPS", 5),
			Burst:   envInt("RATE_LIMIT_BURST", 20),
		},

		Mpesa: MpesaConfig{
			BaseURL:         strings.TrimRight(envStr("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"), "/"),
			ConsumerKey:     os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:  os.Getenv("MPESA_CONSUMER_SECRET"),
			ShortCode:       envStr("MPESA_SHORTCODE", "174379"),
			PassKey:         os.Getenv("MPESA_PASSKEY"),
			CallbackURL:     os.Getenv("MPESA_CALLBACK_URL"),
			TransactionType: envStr("MPESA_TRANSACTION_TYPE", "CustomerPayBillOnline"),
			Timeout:         envDur("MPESA_TIMEOUT", 15*time.Second),
		},

		Mail: MailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			BookingsFrom: envStr("MAIL_FROM_BOOKINGS", "Bookings <onboarding@resend.dev>"),
			PaymentsFrom: envStr("MAIL_FROM_PAYMENTS", "Payments <onboarding@resend.dev>"),
		},

		TracingEnabled: envBool("TRACING_ENABLED", false),
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var missing []string
	if c.PostgresURL == "" {
		missing = append(missing, "POSTGRES_URL")
	}
	if c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return d
	}
	return f
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	dur, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return dur
}
