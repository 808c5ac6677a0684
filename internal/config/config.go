package config

import (
	"fmt"
	"time"

	"github.com/codeclash/similitude/internal/configs/env"
	"github.com/codeclash/similitude/internal/similarity"
)

// Config holds all configuration for the service. Mongo and Redis are
// optional: empty connection settings disable the comparison archive, the
// report cache and the stream consumer, leaving the synchronous compare
// path fully functional.
type Config struct {
	// MongoDB (comparison archive)
	MongoURI    string
	MongoDBName string

	// Redis (report cache + submission stream)
	RedisAddr          string
	RedisPassword      string
	StreamKey          string
	ConsumerGroup      string
	DeadLetterKey      string
	StreamRetention    time.Duration
	CacheTTL           time.Duration

	// JWT (auth disabled when secret is empty)
	JWTSecret string
	JWTIssuer string

	// Rate limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentCompare int
	CompareTimeout       time.Duration

	// Engine constants (defaults live in the similarity package)
	KGramSize      int
	WinnowWindow   int
	MossWeight     float64
	StructWeight   float64
	LineWeight     float64
	MinBlockLength int

	// Logging
	LogLevel string

	// Server
	ServerPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "similitude")

	// Redis
	cfg.RedisAddr = env.GetEnv("REDIS_ADDR", "")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.StreamKey = env.GetEnv("STREAM_KEY", "similitude:submissions")
	cfg.ConsumerGroup = env.GetEnv("CONSUMER_GROUP", "similitude:group")
	cfg.DeadLetterKey = env.GetEnv("DEAD_LETTER_KEY", "similitude:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_HOURS", 24)
	cfg.StreamRetention = time.Duration(retentionHours) * time.Hour
	cacheMinutes := env.GetEnvInt("CACHE_TTL_MINUTES", 720)
	cfg.CacheTTL = time.Duration(cacheMinutes) * time.Minute

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "similitude")

	// Rate limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentCompare = env.GetEnvInt("MAX_CONCURRENT_COMPARE", 8)
	timeoutSeconds := env.GetEnvInt("COMPARE_TIMEOUT_SECONDS", 60)
	cfg.CompareTimeout = time.Duration(timeoutSeconds) * time.Second

	// Engine constants
	cfg.KGramSize = env.GetEnvInt("KGRAM_SIZE", similarity.DefaultKGramSize)
	cfg.WinnowWindow = env.GetEnvInt("WINNOW_WINDOW", similarity.DefaultWinnowWindow)
	cfg.MossWeight = env.GetEnvFloat("MOSS_WEIGHT", similarity.DefaultMossWeight)
	cfg.StructWeight = env.GetEnvFloat("STRUCT_WEIGHT", similarity.DefaultStructWeight)
	cfg.LineWeight = env.GetEnvFloat("LINE_WEIGHT", similarity.DefaultLineWeight)
	cfg.MinBlockLength = env.GetEnvInt("MIN_BLOCK_LENGTH", similarity.DefaultMinBlockLength)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI != "" && c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required when MONGO_URI is set")
	}
	if c.MaxConcurrentCompare <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_COMPARE must be greater than 0")
	}
	if c.CompareTimeout <= 0 {
		return fmt.Errorf("COMPARE_TIMEOUT_SECONDS must be greater than 0")
	}
	if c.RedisAddr != "" && c.StreamRetention <= 0 {
		return fmt.Errorf("STREAM_RETENTION_HOURS must be greater than 0")
	}
	// Engine constants are validated by the engine itself, but reject the
	// obvious mistakes before wiring anything up.
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}
	return nil
}

// EngineConfig builds the engine configuration from the loaded constants,
// keeping the defaults for everything the environment does not override.
func (c *Config) EngineConfig() similarity.Config {
	engineCfg := similarity.DefaultConfig()
	engineCfg.KGramSize = c.KGramSize
	engineCfg.WinnowWindow = c.WinnowWindow
	engineCfg.MossWeight = c.MossWeight
	engineCfg.StructWeight = c.StructWeight
	engineCfg.LineWeight = c.LineWeight
	engineCfg.MinBlockLength = c.MinBlockLength
	return engineCfg
}
