// Package config loads application configuration from the environment. An
// optional .env file is read first; viper supplies defaults and typing.
package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration values.
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	Booking   BookingConfig
	Payment   PaymentConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

type AppConfig struct {
	Env         string   // dev, test, prod
	Port        string   // HTTP port to listen on
	Debug       bool     // console logging at debug level
	LogDir      string   // directory for rotated log files
	CORSOrigins []string // allowed browser origins
	AutoMigrate bool     // apply the embedded schema at startup
}

type DBConfig struct {
	User            string
	Pass            string
	Host            string
	Port            string
	Name            string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// BookingConfig carries the seat-locking and pricing constants.
type BookingConfig struct {
	LockTTL           time.Duration // lifetime of a seat lock
	AbandonAfter      time.Duration // age after which an unpaid booking is purged
	TaxRate           float64       // GST applied on the base amount
	Currency          string        // ISO currency of provider orders
	BookingPrefix     string        // prefix of public booking ids and receipts
	PollInterval      time.Duration // client seat-status polling hint
	PendingHoldsSeats bool          // treat seats of live pending bookings as locked
}

// PaymentConfig configures the payment provider client.
type PaymentConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

type RabbitMQConfig struct {
	URL             string
	ConsumerEnabled bool
}

// Load reads configuration values and returns a Config. Missing required
// variables stop the program with a fatal log message.
func Load() Config {
	// a missing .env is fine; real deployments use the process environment
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		App: AppConfig{
			Env:         v.GetString("APP_ENV"),
			Port:        v.GetString("APP_PORT"),
			Debug:       v.GetBool("APP_DEBUG"),
			LogDir:      v.GetString("LOG_DIR"),
			CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		DB: DBConfig{
			User: must(v, "DB_USER"),
			Pass: v.GetString("DB_PASS"),
			Host: v.GetString("DB_HOST"),
			Port: v.GetString("DB_PORT"),
			Name: must(v, "DB_NAME"),

			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		JWT: JWTConfig{
			Secret:     must(v, "JWT_SECRET"),
			AccessTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
			RefreshTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		},
		Booking: BookingConfig{
			LockTTL:           v.GetDuration("SEAT_LOCK_TTL"),
			AbandonAfter:      v.GetDuration("BOOKING_ABANDON_AFTER"),
			TaxRate:           v.GetFloat64("TAX_RATE"),
			Currency:          v.GetString("CURRENCY"),
			BookingPrefix:     v.GetString("BOOKING_PREFIX"),
			PollInterval:      v.GetDuration("SEAT_POLL_INTERVAL"),
			PendingHoldsSeats: v.GetBool("BOOKING_PENDING_HOLDS_SEATS"),
		},
		Payment: PaymentConfig{
			BaseURL:   v.GetString("RAZORPAY_BASE_URL"),
			KeyID:     must(v, "RAZORPAY_KEY_ID"),
			KeySecret: must(v, "RAZORPAY_KEY_SECRET"),
			Timeout:   v.GetDuration("RAZORPAY_TIMEOUT"),
		},
		Redis:     loadRedisConfig(v),
		RabbitMQ:  loadRabbitMQConfig(v),
		RateLimit: loadRateLimitConfig(v),
		Cache:     loadCacheConfig(v),
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_DEBUG", false)
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("ACCESS_TOKEN_TTL", 15*time.Minute)
	v.SetDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour)

	v.SetDefault("SEAT_LOCK_TTL", 10*time.Minute)
	v.SetDefault("BOOKING_ABANDON_AFTER", 30*time.Minute)
	v.SetDefault("TAX_RATE", 0.18)
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("BOOKING_PREFIX", "NF")
	v.SetDefault("SEAT_POLL_INTERVAL", 3*time.Second)
	v.SetDefault("BOOKING_PENDING_HOLDS_SEATS", false)

	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1")
	v.SetDefault("RAZORPAY_TIMEOUT", 10*time.Second)
}

// must retrieves the value of a required variable. An unset or empty value
// logs a fatal error and exits.
func must(v *viper.Viper, key string) string {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return s
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
