package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Job queue drivers.
const (
	JobsDriverMemory = "memory"
	JobsDriverAsynq  = "asynq"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Jobs      JobsConfig
	Diagnosis DiagnosisConfig
	Dispatch  DispatchConfig
	RateLimit RateLimitConfig
	Analytics AnalyticsConfig
	Events    EventsConfig
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
	AutoMigrate   bool
	MigrationsDir string
}

type RedisConfig struct {
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

// JobsConfig selects and tunes the background job driver.
type JobsConfig struct {
	Driver     string
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// DiagnosisConfig controls audio intake and the simulated analyzer.
type DiagnosisConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	AnalysisDelay    time.Duration
	FailureRate      float64
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	RecoverOnStart   bool
}

// DispatchConfig bounds proximity searches.
type DispatchConfig struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	GarageRadiusKm  float64
}

// RateLimitConfig throttles emergency creation per principal.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int
	Burst          int
	MaxTrackedKeys int
}

// AnalyticsConfig governs cache behaviour for analytics endpoints.
type AnalyticsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	TopNDefault  int
}

// EventsConfig points at the NATS server receiving domain events. An empty URL disables publishing.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
		MigrationsDir: v.GetString("DB_MIGRATIONS_DIR"),
	}

	cfg.Redis = RedisConfig{
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

	driver := strings.ToLower(v.GetString("JOBS_DRIVER"))
	if driver != JobsDriverAsynq {
		driver = JobsDriverMemory
	}
	cfg.Jobs = JobsConfig{
		Driver:     driver,
		Workers:    v.GetInt("JOBS_WORKERS"),
		BufferSize: v.GetInt("JOBS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	maxAudio := v.GetInt64("DIAGNOSIS_MAX_FILE_SIZE")
	if maxAudio <= 0 {
		maxAudio = 10 * 1024 * 1024
	}
	failureRate := v.GetFloat64("DIAGNOSIS_FAILURE_RATE")
	if failureRate < 0 || failureRate > 1 {
		failureRate = 0
	}
	cfg.Diagnosis = DiagnosisConfig{
		StorageDir:       v.GetString("DIAGNOSIS_STORAGE_DIR"),
		MaxFileSizeBytes: maxAudio,
		AllowedMIMEs:     splitAndTrim(v.GetString("DIAGNOSIS_ALLOWED_MIME_TYPES")),
		AnalysisDelay:    parseDuration(v.GetString("DIAGNOSIS_ANALYSIS_DELAY"), 3*time.Second),
		FailureRate:      failureRate,
		SignedURLSecret:  v.GetString("DIAGNOSIS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("DIAGNOSIS_SIGNED_URL_TTL"), 30*time.Minute),
		RecoverOnStart:   v.GetBool("DIAGNOSIS_RECOVER_ON_START"),
	}

	cfg.Dispatch = DispatchConfig{
		DefaultRadiusKm: v.GetFloat64("DISPATCH_DEFAULT_RADIUS_KM"),
		MaxRadiusKm:     v.GetFloat64("DISPATCH_MAX_RADIUS_KM"),
		GarageRadiusKm:  v.GetFloat64("DISPATCH_GARAGE_RADIUS_KM"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:        v.GetBool("RATE_LIMIT_ENABLED"),
		RequestsPerMin: v.GetInt("RATE_LIMIT_EMERGENCIES_PER_MIN"),
		Burst:          v.GetInt("RATE_LIMIT_BURST"),
		MaxTrackedKeys: v.GetInt("RATE_LIMIT_MAX_KEYS"),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheEnabled: v.GetBool("ANALYTICS_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 5*time.Minute),
		TopNDefault:  v.GetInt("ANALYTICS_TOP_N"),
	}

	cfg.Events = EventsConfig{
		NATSURL:       v.GetString("NATS_URL"),
		SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
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
	v.SetDefault("DB_NAME", "roadside_assist")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_MIGRATIONS_DIR", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "roadside-assist-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("JOBS_DRIVER", JobsDriverMemory)
	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_BUFFER_SIZE", 64)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")

	v.SetDefault("DIAGNOSIS_STORAGE_DIR", "./uploads")
	v.SetDefault("DIAGNOSIS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("DIAGNOSIS_ALLOWED_MIME_TYPES", "")
	v.SetDefault("DIAGNOSIS_ANALYSIS_DELAY", "3s")
	v.SetDefault("DIAGNOSIS_FAILURE_RATE", 0.0)
	v.SetDefault("DIAGNOSIS_SIGNED_URL_SECRET", "dev_audio_secret")
	v.SetDefault("DIAGNOSIS_SIGNED_URL_TTL", "30m")
	v.SetDefault("DIAGNOSIS_RECOVER_ON_START", true)

	v.SetDefault("DISPATCH_DEFAULT_RADIUS_KM", 5.0)
	v.SetDefault("DISPATCH_MAX_RADIUS_KM", 100.0)
	v.SetDefault("DISPATCH_GARAGE_RADIUS_KM", 5.0)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_EMERGENCIES_PER_MIN", 5)
	v.SetDefault("RATE_LIMIT_BURST", 3)
	v.SetDefault("RATE_LIMIT_MAX_KEYS", 10000)

	v.SetDefault("ANALYTICS_CACHE_ENABLED", true)
	v.SetDefault("ANALYTICS_CACHE_TTL", "5m")
	v.SetDefault("ANALYTICS_TOP_N", 5)

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "roadside")
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
