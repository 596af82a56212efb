package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	ElevenLabs ElevenLabsConfig
	Groq       GroqConfig
	R2         R2Config
	Generation GenerationConfig
	Cleanup    CleanupConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	URL string
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	GeneratePerHour int
	UploadPerHour   int
	ScriptsPerMin   int
}

type ElevenLabsConfig struct {
	APIKey            string
	BaseURL           string
	ModelID           string
	CreateTimeout     time.Duration
	SynthesizeTimeout time.Duration
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// GenerationConfig collects the orchestrator's tunables. The cooldown and
// sample thresholds are deliberately configuration, not literals.
type GenerationConfig struct {
	Cooldown              time.Duration
	MaxSamples            int
	MinViableSamples      int
	MaxScriptChars        int
	SampleDownloadTimeout time.Duration
	RetryMaxAttempts      int
	RetryInitialDelay     time.Duration
}

type CleanupConfig struct {
	StuckAfter time.Duration
	Schedule   string // asynq cronspec, e.g. "@every 1h"
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("POSTGRES_URL")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("GROQ_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("postgres.url", "POSTGRES_URL")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	_ = viper.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = viper.BindEnv("elevenlabs.model_id", "ELEVENLABS_MODEL_ID")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.model", "GROQ_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("generation.cooldown", "GENERATION_COOLDOWN")
	_ = viper.BindEnv("generation.max_samples", "GENERATION_MAX_SAMPLES")
	_ = viper.BindEnv("generation.min_viable_samples", "GENERATION_MIN_VIABLE_SAMPLES")
	_ = viper.BindEnv("cleanup.stuck_after", "CLEANUP_STUCK_AFTER")
	_ = viper.BindEnv("cleanup.schedule", "CLEANUP_SCHEDULE")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("postgres.url", "postgres://localhost:5432/voicemint?sslmode=disable")
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.upload_per_hour", 100)
	viper.SetDefault("ratelimit.scripts_per_min", 20)

	// ElevenLabs defaults
	viper.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")
	viper.SetDefault("elevenlabs.create_timeout", "120s")
	viper.SetDefault("elevenlabs.synthesize_timeout", "180s")

	// Groq defaults
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "llama-3.3-70b-versatile")

	// Generation defaults
	viper.SetDefault("generation.cooldown", "5m")
	viper.SetDefault("generation.max_samples", 25)
	viper.SetDefault("generation.min_viable_samples", 1)
	viper.SetDefault("generation.max_script_chars", 10000)
	viper.SetDefault("generation.sample_download_timeout", "30s")
	viper.SetDefault("generation.retry_max_attempts", 3)
	viper.SetDefault("generation.retry_initial_delay", "1s")

	// Cleanup defaults
	viper.SetDefault("cleanup.stuck_after", "1h")
	viper.SetDefault("cleanup.schedule", "@every 1h")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Postgres: PostgresConfig{
			URL: viper.GetString("postgres.url"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			UploadPerHour:   viper.GetInt("ratelimit.upload_per_hour"),
			ScriptsPerMin:   viper.GetInt("ratelimit.scripts_per_min"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:            viper.GetString("elevenlabs.api_key"),
			BaseURL:           viper.GetString("elevenlabs.base_url"),
			ModelID:           viper.GetString("elevenlabs.model_id"),
			CreateTimeout:     viper.GetDuration("elevenlabs.create_timeout"),
			SynthesizeTimeout: viper.GetDuration("elevenlabs.synthesize_timeout"),
		},
		Groq: GroqConfig{
			APIKey:  viper.GetString("groq.api_key"),
			BaseURL: viper.GetString("groq.base_url"),
			Model:   viper.GetString("groq.model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Generation: GenerationConfig{
			Cooldown:              viper.GetDuration("generation.cooldown"),
			MaxSamples:            viper.GetInt("generation.max_samples"),
			MinViableSamples:      viper.GetInt("generation.min_viable_samples"),
			MaxScriptChars:        viper.GetInt("generation.max_script_chars"),
			SampleDownloadTimeout: viper.GetDuration("generation.sample_download_timeout"),
			RetryMaxAttempts:      viper.GetInt("generation.retry_max_attempts"),
			RetryInitialDelay:     viper.GetDuration("generation.retry_initial_delay"),
		},
		Cleanup: CleanupConfig{
			StuckAfter: viper.GetDuration("cleanup.stuck_after"),
			Schedule:   viper.GetString("cleanup.schedule"),
		},
	}

	return cfg, nil
}
