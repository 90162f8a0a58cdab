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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Broadcast BroadcastConfig
	Directory DirectoryConfig
	Audit     AuditConfig
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
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BroadcastConfig governs the invite lifecycle and the anonymous submission
// gates. InviteTTL and RetentionWindow are the two retention deadlines the
// sweep enforces server-side.
type BroadcastConfig struct {
	InviteTTL       time.Duration
	RetentionWindow time.Duration
	SweepInterval   time.Duration
	SweepBatchSize  int
	MinElapsed      time.Duration
	MaxFanout       int
	WrapConcurrency int
	MaxPayloadBytes int64
}

// DirectoryConfig tunes the public group directory.
type DirectoryConfig struct {
	CacheTTL   time.Duration
	MaxResults int
}

// AuditConfig configures asynchronous tombstone audit exports.
type AuditConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
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
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Broadcast = BroadcastConfig{
		InviteTTL:       parseDuration(v.GetString("BROADCAST_INVITE_TTL"), 14*24*time.Hour),
		RetentionWindow: parseDuration(v.GetString("BROADCAST_RETENTION_WINDOW"), 72*time.Hour),
		SweepInterval:   parseDuration(v.GetString("BROADCAST_SWEEP_INTERVAL"), 5*time.Minute),
		SweepBatchSize:  v.GetInt("BROADCAST_SWEEP_BATCH_SIZE"),
		MinElapsed:      parseDuration(v.GetString("BROADCAST_MIN_ELAPSED"), 3*time.Second),
		MaxFanout:       v.GetInt("BROADCAST_MAX_FANOUT"),
		WrapConcurrency: v.GetInt("BROADCAST_WRAP_CONCURRENCY"),
		MaxPayloadBytes: v.GetInt64("BROADCAST_MAX_PAYLOAD_BYTES"),
	}

	cfg.Directory = DirectoryConfig{
		CacheTTL:   parseDuration(v.GetString("DIRECTORY_CACHE_TTL"), 5*time.Minute),
		MaxResults: v.GetInt("DIRECTORY_MAX_RESULTS"),
	}

	cfg.Audit = AuditConfig{
		Enabled:           v.GetBool("ENABLE_AUDIT_EXPORTS"),
		StorageDir:        v.GetString("AUDIT_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("AUDIT_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("AUDIT_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("AUDIT_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("AUDIT_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("AUDIT_WORKER_RETRIES"),
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
	v.SetDefault("DB_NAME", "aidrelay")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "aidrelay-admin")
	v.SetDefault("JWT_AUDIENCE", "aidrelay-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BROADCAST_INVITE_TTL", "336h")
	v.SetDefault("BROADCAST_RETENTION_WINDOW", "72h")
	v.SetDefault("BROADCAST_SWEEP_INTERVAL", "5m")
	v.SetDefault("BROADCAST_SWEEP_BATCH_SIZE", 100)
	v.SetDefault("BROADCAST_MIN_ELAPSED", "3s")
	v.SetDefault("BROADCAST_MAX_FANOUT", 50)
	v.SetDefault("BROADCAST_WRAP_CONCURRENCY", 8)
	v.SetDefault("BROADCAST_MAX_PAYLOAD_BYTES", 64*1024)

	v.SetDefault("DIRECTORY_CACHE_TTL", "5m")
	v.SetDefault("DIRECTORY_MAX_RESULTS", 200)

	v.SetDefault("ENABLE_AUDIT_EXPORTS", false)
	v.SetDefault("AUDIT_STORAGE_DIR", "./audit-exports")
	v.SetDefault("AUDIT_SIGNED_URL_SECRET", "dev_audit_secret")
	v.SetDefault("AUDIT_SIGNED_URL_TTL", "24h")
	v.SetDefault("AUDIT_CLEANUP_INTERVAL", "1h")
	v.SetDefault("AUDIT_WORKER_CONCURRENCY", 1)
	v.SetDefault("AUDIT_WORKER_RETRIES", 3)
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
