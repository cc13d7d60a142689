package config

import (
	"fmt"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"brandgraph-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"60"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Graph Database (Neo4j/Memgraph)
	GraphDBHost         string        `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort         int           `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser         string        `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword     string        `env:"GRAPH_DB_PASSWORD" env-default:""`
	GraphDBTimeout      time.Duration `env:"GRAPH_DB_TIMEOUT" env-default:"5s"`
	GraphDBWriteRetries int           `env:"GRAPH_DB_WRITE_RETRIES" env-default:"3"`

	// PostgreSQL (review queue)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"brandgraph"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// LLM inference (OpenRouter)
	OpenRouterAPIKey string        `env:"OPENROUTER_API_KEY" env-default:""`
	InferenceModel   string        `env:"INFERENCE_MODEL" env-default:"openai/gpt-4o"`
	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" env-default:"30s"`

	// Web discovery (Tavily)
	TavilyAPIKey     string        `env:"TAVILY_API_KEY" env-default:""`
	TavilyBaseURL    string        `env:"TAVILY_BASE_URL" env-default:"https://api.tavily.com"`
	MaxSearchResults int           `env:"MAX_SEARCH_RESULTS" env-default:"5"`
	DiscoveryTimeout time.Duration `env:"DISCOVERY_TIMEOUT" env-default:"10s"`

	// Resolution
	ConfidenceThreshold    float64 `env:"CONFIDENCE_THRESHOLD" env-default:"0.7"`
	LowConfidenceThreshold float64 `env:"LOW_CONFIDENCE_THRESHOLD" env-default:"0.5"`
	ResolverWorkerCount    int     `env:"RESOLVER_WORKER_COUNT" env-default:"4"`

	// Kafka Producer (relationship events, optional)
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:""`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"relationship-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Review queue
	ReviewQueueEnabled bool `env:"REVIEW_QUEUE_ENABLED" env-default:"true"`

	// Tracing
	TracingEnabled      bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingOTLPEndpoint string `env:"TRACING_OTLP_ENDPOINT" env-default:"localhost:4317"`
	TracingOTLPProtocol string `env:"TRACING_OTLP_PROTOCOL" env-default:"grpc"`
}

// Load reads .env (if present) and binds environment variables to a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to bind environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required credentials and threshold ranges. Failures here are
// fatal at startup, before any document is processed.
func (c *Config) Validate() error {
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1], got %f", c.ConfidenceThreshold)
	}
	if c.LowConfidenceThreshold < 0 || c.LowConfidenceThreshold > 1 {
		return fmt.Errorf("LOW_CONFIDENCE_THRESHOLD must be in [0,1], got %f", c.LowConfidenceThreshold)
	}
	if c.ResolverWorkerCount < 1 {
		return fmt.Errorf("RESOLVER_WORKER_COUNT must be at least 1")
	}
	return nil
}

// DatabaseEnabled reports whether the review-queue database is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.DatabaseHost != ""
}

// KafkaEnabled reports whether event emission is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaBrokers[0] != ""
}
