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
	Punch         PunchConfig
	Amendment     AmendmentConfig
	Verification  VerificationConfig
	Notifications NotificationsConfig
	Reports       ReportsConfig
	Dashboard     DashboardConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PunchConfig tunes duplicate detection for inbound punches.
type PunchConfig struct {
	Strategy           string
	MinInterval        time.Duration
	KindWindow         time.Duration
	DeviceWindow       time.Duration
	LocationRadiusM    float64
	PersistenceTimeout time.Duration
}

// AmendmentConfig governs the adjustment workflow policy.
type AmendmentConfig struct {
	MaxAgeDays         int
	RequireApproval    bool
	MinDescription     int
	PersistenceTimeout time.Duration
}

// VerificationConfig configures integrity verification codes.
type VerificationConfig struct {
	Secret string
	TTL    time.Duration
}

// NotificationsConfig tunes the best-effort event dispatcher.
type NotificationsConfig struct {
	Workers        int
	BufferSize     int
	MaxRetries     int
	PublishTimeout time.Duration
}

// ReportsConfig gates the punch mirror exports.
type ReportsConfig struct {
	Enabled     bool
	CompanyName string
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Punch = PunchConfig{
		Strategy:           v.GetString("PUNCH_DUPLICATE_STRATEGY"),
		MinInterval:        parseDuration(v.GetString("PUNCH_MIN_INTERVAL"), 60*time.Second),
		KindWindow:         parseDuration(v.GetString("PUNCH_KIND_WINDOW"), 5*time.Minute),
		DeviceWindow:       parseDuration(v.GetString("PUNCH_DEVICE_WINDOW"), 2*time.Minute),
		LocationRadiusM:    v.GetFloat64("PUNCH_LOCATION_RADIUS_M"),
		PersistenceTimeout: parseDuration(v.GetString("PUNCH_PERSISTENCE_TIMEOUT"), 5*time.Second),
	}

	cfg.Amendment = AmendmentConfig{
		MaxAgeDays:         v.GetInt("AMENDMENT_MAX_AGE_DAYS"),
		RequireApproval:    v.GetBool("AMENDMENT_REQUIRE_APPROVAL"),
		MinDescription:     v.GetInt("AMENDMENT_MIN_DESCRIPTION"),
		PersistenceTimeout: parseDuration(v.GetString("AMENDMENT_PERSISTENCE_TIMEOUT"), 5*time.Second),
	}

	cfg.Verification = VerificationConfig{
		Secret: v.GetString("VERIFICATION_SECRET"),
		TTL:    parseDuration(v.GetString("VERIFICATION_TTL"), 24*time.Hour),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:        v.GetInt("NOTIFY_WORKERS"),
		BufferSize:     v.GetInt("NOTIFY_BUFFER_SIZE"),
		MaxRetries:     v.GetInt("NOTIFY_MAX_RETRIES"),
		PublishTimeout: parseDuration(v.GetString("NOTIFY_PUBLISH_TIMEOUT"), 2*time.Second),
	}

	cfg.Reports = ReportsConfig{
		Enabled:     v.GetBool("ENABLE_REPORTS"),
		CompanyName: v.GetString("REPORTS_COMPANY_NAME"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
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
	v.SetDefault("DB_NAME", "ponto")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PUNCH_DUPLICATE_STRATEGY", "HYBRID")
	v.SetDefault("PUNCH_MIN_INTERVAL", "60s")
	v.SetDefault("PUNCH_KIND_WINDOW", "5m")
	v.SetDefault("PUNCH_DEVICE_WINDOW", "2m")
	v.SetDefault("PUNCH_LOCATION_RADIUS_M", 30.0)
	v.SetDefault("PUNCH_PERSISTENCE_TIMEOUT", "5s")

	v.SetDefault("AMENDMENT_MAX_AGE_DAYS", 30)
	v.SetDefault("AMENDMENT_REQUIRE_APPROVAL", true)
	v.SetDefault("AMENDMENT_MIN_DESCRIPTION", 10)
	v.SetDefault("AMENDMENT_PERSISTENCE_TIMEOUT", "5s")

	v.SetDefault("VERIFICATION_SECRET", "dev_verification_secret")
	v.SetDefault("VERIFICATION_TTL", "24h")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_PUBLISH_TIMEOUT", "2s")

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_COMPANY_NAME", "")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
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
