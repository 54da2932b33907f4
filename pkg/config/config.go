package config

import (
	"errors"
	"os"
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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Sentry   SentryConfig
	Scoring  ScoringConfig
	Cascade  CascadeConfig
	Cache    CacheConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	QueryTimeout  time.Duration
	RunMigrations bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SentryConfig enables error reporting for degraded computations.
type SentryConfig struct {
	DSN     string
	Release string
}

// ScoringConfig seeds the scoring engine before persisted weights are loaded.
// Weights and tier thresholds use the "KEY:value,KEY:value" format.
type ScoringConfig struct {
	DefaultWeights         map[string]string
	TierThresholds         map[string]string
	DefaultTier            string
	AcademicMaxGrade       string
	ActivityRule           string
	SeminarCeiling         string
	ExtracurricularCeiling string
}

// CascadeConfig tunes the recomputation worker pool.
type CascadeConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// CacheConfig governs score profile caching.
type CacheConfig struct {
	ProfileTTL time.Duration
}

// ExportsConfig controls scoreboard export storage & signed downloads.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		QueryTimeout:  parseDuration(v.GetString("DB_QUERY_TIMEOUT"), 5*time.Second),
		RunMigrations: v.GetBool("DB_RUN_MIGRATIONS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Sentry = SentryConfig{
		DSN:     v.GetString("SENTRY_DSN"),
		Release: v.GetString("SENTRY_RELEASE"),
	}

	cfg.Scoring = ScoringConfig{
		DefaultWeights:         splitPairs(v.GetString("SCORING_DEFAULT_WEIGHTS")),
		TierThresholds:         splitPairs(v.GetString("SCORING_TIER_THRESHOLDS")),
		DefaultTier:            v.GetString("SCORING_DEFAULT_TIER"),
		AcademicMaxGrade:       v.GetString("SCORING_ACADEMIC_MAX_GRADE"),
		ActivityRule:           v.GetString("SCORING_ACTIVITY_RULE"),
		SeminarCeiling:         v.GetString("SCORING_SEMINAR_CEILING"),
		ExtracurricularCeiling: v.GetString("SCORING_EXTRACURRICULAR_CEILING"),
	}

	cfg.Cascade = CascadeConfig{
		Workers:    v.GetInt("CASCADE_WORKERS"),
		BufferSize: v.GetInt("CASCADE_BUFFER_SIZE"),
		MaxRetries: v.GetInt("CASCADE_RETRIES"),
		RetryDelay: parseDuration(v.GetString("CASCADE_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Cache = CacheConfig{
		ProfileTTL: parseDuration(v.GetString("PROFILE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "achievement_scores")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_QUERY_TIMEOUT", "5s")
	v.SetDefault("DB_RUN_MIGRATIONS", true)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "sma-achievement-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("SENTRY_RELEASE", "")

	v.SetDefault("SCORING_DEFAULT_WEIGHTS", "ACADEMIC:30,CHALLENGES:20,MASTERY:20,SEMINARS:15,EXTRACURRICULAR:15")
	v.SetDefault("SCORING_TIER_THRESHOLDS", "PLATINUM:85,GOLD:70,SILVER:55,BRONZE:40")
	v.SetDefault("SCORING_DEFAULT_TIER", "NONE")
	v.SetDefault("SCORING_ACADEMIC_MAX_GRADE", "100")
	v.SetDefault("SCORING_ACTIVITY_RULE", "count")
	v.SetDefault("SCORING_SEMINAR_CEILING", "0")
	v.SetDefault("SCORING_EXTRACURRICULAR_CEILING", "0")

	v.SetDefault("CASCADE_WORKERS", 4)
	v.SetDefault("CASCADE_BUFFER_SIZE", 256)
	v.SetDefault("CASCADE_RETRIES", 3)
	v.SetDefault("CASCADE_RETRY_DELAY", "2s")

	v.SetDefault("PROFILE_CACHE_TTL", "10m")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
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

// splitPairs parses "KEY:value,KEY:value" into an upper-cased key map.
func splitPairs(raw string) map[string]string {
	result := make(map[string]string)
	for _, part := range splitAndTrim(raw) {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	return result
}
