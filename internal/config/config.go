package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Kafka         KafkaConfig
	Clickhouse    ClickhouseConfig
	Elasticsearch ElasticsearchConfig
	KMS           KMSConfig
	Auth          AuthConfig
	Twilio        TwilioConfig
	OTP           OTPConfig
	Ticket        TicketConfig
	Face          FaceConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	TicketTopic string
}

type ClickhouseConfig struct {
	Enabled  bool
	URL      string
	Database string
	Username string
	Password string
}

type ElasticsearchConfig struct {
	Enabled     bool
	URL         string
	Username    string
	Password    string
	TicketIndex string
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

type TicketConfig struct {
	IDPrefix string
	TTL      time.Duration
}

type FaceConfig struct {
	ModelsDir     string
	StorageDir    string
	MatchDistance float64
}

var (
	instance *Config
	once     sync.Once
)

// LoadConfig reads configuration from the environment, loading a .env file
// first when one is present. Safe to call more than once.
func LoadConfig() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		instance = &Config{
			Environment: getEnv("ENVIRONMENT", "development"),
			Server: ServerConfig{
				Port:         getEnvInt("SERVER_PORT", 8080),
				ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
				IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
			Redis: RedisConfig{
				URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
				PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
			},
			Scylla: ScyllaConfig{
				Nodes:    getEnvList("SCYLLA_NODES", "localhost:9042"),
				Keyspace: getEnv("SCYLLA_KEYSPACE", "ticketing"),
				Username: getEnv("SCYLLA_USERNAME", ""),
				Password: getEnv("SCYLLA_PASSWORD", ""),
			},
			Kafka: KafkaConfig{
				Enabled:     getEnvBool("KAFKA_ENABLED", false),
				Brokers:     getEnvList("KAFKA_BROKERS", "localhost:9092"),
				TicketTopic: getEnv("KAFKA_TICKET_TOPIC", "ticket-events"),
			},
			Clickhouse: ClickhouseConfig{
				Enabled:  getEnvBool("CLICKHOUSE_ENABLED", false),
				URL:      getEnv("CLICKHOUSE_URL", "localhost:9000"),
				Database: getEnv("CLICKHOUSE_DATABASE", "ticketing"),
				Username: getEnv("CLICKHOUSE_USERNAME", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Elasticsearch: ElasticsearchConfig{
				Enabled:     getEnvBool("ELASTICSEARCH_ENABLED", false),
				URL:         getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
				Username:    getEnv("ELASTICSEARCH_USERNAME", ""),
				Password:    getEnv("ELASTICSEARCH_PASSWORD", ""),
				TicketIndex: getEnv("ELASTICSEARCH_TICKET_INDEX", "tickets"),
			},
			KMS: KMSConfig{
				Enabled: getEnvBool("KMS_ENABLED", false),
				KeyID:   getEnv("KMS_KEY_ID", ""),
				Region:  getEnv("AWS_REGION", "ap-south-1"),
			},
			Auth: AuthConfig{
				JWTSecret: getEnv("JWT_SECRET", ""),
				TokenTTL:  getEnvDuration("JWT_TOKEN_TTL", time.Hour),
			},
			Twilio: TwilioConfig{
				AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
				AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
				FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
			},
			OTP: OTPConfig{
				TTL:         getEnvDuration("OTP_TTL", 5*time.Minute),
				MaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
			},
			Ticket: TicketConfig{
				IDPrefix: getEnv("TICKET_ID_PREFIX", "TKT-"),
				TTL:      getEnvDuration("TICKET_TTL", 24*time.Hour),
			},
			Face: FaceConfig{
				ModelsDir:     getEnv("FACE_MODELS_DIR", "models"),
				StorageDir:    getEnv("FACE_STORAGE_DIR", "faces"),
				MatchDistance: getEnvFloat("FACE_MATCH_DISTANCE", 0.6),
			},
		}
	})
	return instance
}

// Get returns the loaded configuration.
func Get() *Config {
	if instance == nil {
		return LoadConfig()
	}
	return instance
}

// Validate enforces the settings the service cannot run without. Missing
// required settings abort startup instead of degrading silently.
func (c *Config) Validate() error {
	var missing []string

	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(c.Scylla.Nodes) == 0 {
		missing = append(missing, "SCYLLA_NODES")
	}
	if c.Redis.URL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if c.IsProduction() {
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.FromNumber == "" {
			missing = append(missing, "TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN/TWILIO_FROM_NUMBER")
		}
		if c.KMS.Enabled && c.KMS.KeyID == "" {
			missing = append(missing, "KMS_KEY_ID")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
