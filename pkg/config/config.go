package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Booking       BookingConfig
	Notifications NotificationConfig
	Admin         AdminConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig carries the scheduling policy knobs.
type BookingConfig struct {
	// SlotMinutes is the fixed granularity sessions are quantized to.
	SlotMinutes int
	// FairnessWindowDays bounds the trailing confirmed-booking count used
	// to rank eligible tutors. Zero means all-time.
	FairnessWindowDays int
	// Timezone is the IANA zone booking dates are interpreted in.
	Timezone string
	// MinLeadDays is how many days ahead a session must be booked.
	MinLeadDays int
	// CutoffHour is the local hour after which next-day sessions close.
	CutoffHour int
	// AvailabilityCacheTTL bounds staleness of cached availability reads.
	AvailabilityCacheTTL time.Duration
}

// NotificationConfig configures the outbound SMS collaborator. An empty
// APIKey makes every send a logged no-op.
type NotificationConfig struct {
	TextbeltURL    string
	TextbeltAPIKey string
	Sender         string
	Timeout        time.Duration
}

// AdminConfig holds the admin portal credential.
type AdminConfig struct {
	PasswordHash string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Booking = BookingConfig{
		SlotMinutes:          v.GetInt("BOOKING_SLOT_MINUTES"),
		FairnessWindowDays:   v.GetInt("FAIRNESS_WINDOW_DAYS"),
		Timezone:             v.GetString("BOOKING_TIMEZONE"),
		MinLeadDays:          v.GetInt("BOOKING_MIN_LEAD_DAYS"),
		CutoffHour:           v.GetInt("BOOKING_CUTOFF_HOUR"),
		AvailabilityCacheTTL: parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 30*time.Second),
	}

	cfg.Notifications = NotificationConfig{
		TextbeltURL:    v.GetString("TEXTBELT_URL"),
		TextbeltAPIKey: v.GetString("TEXTBELT_API_KEY"),
		Sender:         v.GetString("TEXTBELT_SENDER"),
		Timeout:        parseDuration(v.GetString("TEXTBELT_TIMEOUT"), 10*time.Second),
	}

	cfg.Admin = AdminConfig{
		PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "peer_tutoring")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_SLOT_MINUTES", 30)
	v.SetDefault("FAIRNESS_WINDOW_DAYS", 0)
	v.SetDefault("BOOKING_TIMEZONE", "America/Los_Angeles")
	v.SetDefault("BOOKING_MIN_LEAD_DAYS", 1)
	v.SetDefault("BOOKING_CUTOFF_HOUR", 22)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "30s")

	v.SetDefault("TEXTBELT_URL", "https://textbelt.com/text")
	v.SetDefault("TEXTBELT_API_KEY", "")
	v.SetDefault("TEXTBELT_SENDER", "PVHS Peer Tutoring")
	v.SetDefault("TEXTBELT_TIMEOUT", "10s")

	v.SetDefault("ADMIN_PASSWORD_HASH", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
