// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Engine, Logging, Metrics).
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNegativeWeight        = errors.New("weights must be non-negative")
	ErrRelevanceWeightSum    = errors.New("engine.relevance.weights must sum to 1")
	ErrScoreWeightSum        = errors.New("engine.score.weights must sum to 1")
	ErrInvalidKeywordLimit   = errors.New("engine.relevance.keywordLimit must be at least 1")
	ErrInvalidMaxSuggestions = errors.New("engine.suggest.defaultMaxSuggestions must be at least 1")
	ErrInvalidSuggestionCap  = errors.New("engine.suggest.maxSuggestionsCap must be >= defaultMaxSuggestions")
	ErrInvalidMinRelevance   = errors.New("engine.suggest.defaultMinRelevance must be within [0,1]")
	ErrInvalidContextRadius  = errors.New("engine.anchor.contextRadius must be non-negative")
	ErrInvalidGoodThreshold  = errors.New("engine.score.goodThreshold must be within [0,100]")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidRateLimit      = errors.New("server.rateLimit needs a non-negative rate and a positive burst when enabled")
)

const weightSumTolerance = 1e-6

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig bounds API requests per client. A zero
// RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty Host
// disables the catalog store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. An empty Brokers list
// disables catalog events and analytics publishing.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CatalogChanges string `yaml:"catalogChanges"`
	EngineEvents   string `yaml:"engineEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// EngineConfig holds the tunable policy of the relevance and scoring engine.
type EngineConfig struct {
	Relevance RelevanceConfig `yaml:"relevance"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Anchor    AnchorConfig    `yaml:"anchor"`
	Score     ScoreConfig     `yaml:"score"`
	// SiteHosts lists hosts whose absolute links count as internal.
	SiteHosts []string `yaml:"siteHosts"`
}

// RelevanceWeights weights the four lexical relevance signals.
type RelevanceWeights struct {
	TitleOverlap   float64 `yaml:"titleOverlap"`
	KeywordOverlap float64 `yaml:"keywordOverlap"`
	CategoryMatch  float64 `yaml:"categoryMatch"`
	BodyMention    float64 `yaml:"bodyMention"`
}

// Sum returns the total of all weights.
func (w RelevanceWeights) Sum() float64 {
	return w.TitleOverlap + w.KeywordOverlap + w.CategoryMatch + w.BodyMention
}

func (w RelevanceWeights) anyNegative() bool {
	return w.TitleOverlap < 0 || w.KeywordOverlap < 0 || w.CategoryMatch < 0 || w.BodyMention < 0
}

// RelevanceConfig controls the relevance scorer.
type RelevanceConfig struct {
	Weights      RelevanceWeights `yaml:"weights"`
	KeywordLimit int              `yaml:"keywordLimit"`
}

// SuggestConfig holds request defaults for link suggestion.
type SuggestConfig struct {
	DefaultMaxSuggestions int     `yaml:"defaultMaxSuggestions"`
	DefaultMinRelevance   float64 `yaml:"defaultMinRelevance"`
	MaxSuggestionsCap     int     `yaml:"maxSuggestionsCap"`
}

// AnchorConfig controls anchor extraction.
type AnchorConfig struct {
	ContextRadius int `yaml:"contextRadius"`
}

// ScoreWeights weights the five SEO component scores.
type ScoreWeights struct {
	Title         float64 `yaml:"title"`
	Description   float64 `yaml:"description"`
	Keywords      float64 `yaml:"keywords"`
	Content       float64 `yaml:"content"`
	InternalLinks float64 `yaml:"internalLinks"`
}

// Sum returns the total of all weights.
func (w ScoreWeights) Sum() float64 {
	return w.Title + w.Description + w.Keywords + w.Content + w.InternalLinks
}

func (w ScoreWeights) anyNegative() bool {
	return w.Title < 0 || w.Description < 0 || w.Keywords < 0 || w.Content < 0 || w.InternalLinks < 0
}

// ScoreConfig controls the SEO score aggregator and recommendations.
type ScoreConfig struct {
	Weights       ScoreWeights `yaml:"weights"`
	GoodThreshold int          `yaml:"goodThreshold"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// DefaultEngine returns the built-in engine policy.
func DefaultEngine() EngineConfig {
	return defaultConfig().Engine
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Burst: 100,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "btools",
			User:            "btools",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "linkengine-group",
			Topics: KafkaTopics{
				CatalogChanges: "catalog-changes",
				EngineEvents:   "engine-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Engine: EngineConfig{
			Relevance: RelevanceConfig{
				Weights: RelevanceWeights{
					TitleOverlap:   0.35,
					KeywordOverlap: 0.30,
					CategoryMatch:  0.20,
					BodyMention:    0.15,
				},
				KeywordLimit: 10,
			},
			Suggest: SuggestConfig{
				DefaultMaxSuggestions: 10,
				DefaultMinRelevance:   0.3,
				MaxSuggestionsCap:     50,
			},
			Anchor: AnchorConfig{
				ContextRadius: 80,
			},
			Score: ScoreConfig{
				Weights: ScoreWeights{
					Title:         0.20,
					Description:   0.20,
					Keywords:      0.20,
					Content:       0.20,
					InternalLinks: 0.20,
				},
				GoodThreshold: 70,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if rl := c.Server.RateLimit; rl.RequestsPerSecond < 0 || (rl.RequestsPerSecond > 0 && rl.Burst < 1) {
		return ErrInvalidRateLimit
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// Validate checks the engine policy.
func (e EngineConfig) Validate() error {
	rw := e.Relevance.Weights
	sw := e.Score.Weights
	if rw.anyNegative() || sw.anyNegative() {
		return ErrNegativeWeight
	}
	if math.Abs(rw.Sum()-1) > weightSumTolerance {
		return fmt.Errorf("%w: got %.4f", ErrRelevanceWeightSum, rw.Sum())
	}
	if math.Abs(sw.Sum()-1) > weightSumTolerance {
		return fmt.Errorf("%w: got %.4f", ErrScoreWeightSum, sw.Sum())
	}
	if e.Relevance.KeywordLimit < 1 {
		return ErrInvalidKeywordLimit
	}
	if e.Suggest.DefaultMaxSuggestions < 1 {
		return ErrInvalidMaxSuggestions
	}
	if e.Suggest.MaxSuggestionsCap < e.Suggest.DefaultMaxSuggestions {
		return ErrInvalidSuggestionCap
	}
	if e.Suggest.DefaultMinRelevance < 0 || e.Suggest.DefaultMinRelevance > 1 {
		return ErrInvalidMinRelevance
	}
	if e.Anchor.ContextRadius < 0 {
		return ErrInvalidContextRadius
	}
	if e.Score.GoodThreshold < 0 || e.Score.GoodThreshold > 100 {
		return ErrInvalidGoodThreshold
	}
	return nil
}

// applyEnvOverrides reads LE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LE_SERVER_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit.RequestsPerSecond = f
		}
	}
	if v, ok := os.LookupEnv("LE_POSTGRES_HOST"); ok {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("LE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("LE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("LE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("LE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("LE_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v, ok := os.LookupEnv("LE_KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("LE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LE_REDIS_CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Redis.CacheTTL = ttl
		}
	}
	if v := os.Getenv("LE_ENGINE_MIN_RELEVANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.Suggest.DefaultMinRelevance = f
		}
	}
	if v := os.Getenv("LE_ENGINE_MAX_SUGGESTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Suggest.DefaultMaxSuggestions = n
		}
	}
	if v := os.Getenv("LE_ENGINE_SITE_HOSTS"); v != "" {
		cfg.Engine.SiteHosts = splitList(v)
	}
	if v := os.Getenv("LE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LE_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
