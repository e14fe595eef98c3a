package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string

	DB       DBConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Breaker  BreakerConfig
	Tracing  TracingConfig
	Admin    AdminConfig
	Consumer ConsumerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns a lib/pq keyword/value connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

type KafkaConfig struct {
	Brokers    []string
	Topic      string
	DLQTopic   string
	GroupID    string
	MaxRetries int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	StatsTTL time.Duration
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type LLMConfig struct {
	Provider    string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	OpenAI      ProviderConfig
	Groq        ProviderConfig
}

type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type BreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
}

type TracingConfig struct {
	JaegerEndpoint string
}

type AdminConfig struct {
	JWTSecret string
}

type ConsumerConfig struct {
	MessageTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8085")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "expectationdb")

	v.SetDefault("kafka_broker", "localhost:9092")
	v.SetDefault("kafka_topic", "payment_settlements")
	v.SetDefault("kafka_dlq_topic", "")
	v.SetDefault("kafka_group_id", "expectation-service")
	v.SetDefault("kafka_max_retries", 5)

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("stats_cache_ttl", 30*time.Second)

	v.SetDefault("llm_provider", "openai")
	v.SetDefault("llm_temperature", 0.1)
	v.SetDefault("llm_timeout", 30*time.Second)
	v.SetDefault("llm_max_retries", 3)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("groq_api_key", "")
	v.SetDefault("groq_model", "llama-3.1-70b-versatile")
	v.SetDefault("groq_base_url", "https://api.groq.com/openai/v1")

	v.SetDefault("breaker_max_failures", 5)
	v.SetDefault("breaker_reset_timeout", 30*time.Second)

	v.SetDefault("jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("admin_jwt_secret", "")
	v.SetDefault("message_timeout", 2*time.Minute)
}

// Load reads defaults, then the optional YAML file at path, then the
// environment. Environment keys are the upper-case form of the file keys.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr: v.GetString("http_addr"),
		DB: DBConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(v.GetString("kafka_broker")),
			Topic:      v.GetString("kafka_topic"),
			DLQTopic:   v.GetString("kafka_dlq_topic"),
			GroupID:    v.GetString("kafka_group_id"),
			MaxRetries: v.GetInt("kafka_max_retries"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis_host"),
			Port:     v.GetString("redis_port"),
			Password: v.GetString("redis_password"),
			StatsTTL: v.GetDuration("stats_cache_ttl"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("llm_provider")),
			Temperature: v.GetFloat64("llm_temperature"),
			Timeout:     v.GetDuration("llm_timeout"),
			MaxRetries:  v.GetInt("llm_max_retries"),
			OpenAI: ProviderConfig{
				APIKey:  v.GetString("openai_api_key"),
				Model:   v.GetString("openai_model"),
				BaseURL: v.GetString("openai_base_url"),
			},
			Groq: ProviderConfig{
				APIKey:  v.GetString("groq_api_key"),
				Model:   v.GetString("groq_model"),
				BaseURL: v.GetString("groq_base_url"),
			},
		},
		Breaker: BreakerConfig{
			MaxFailures:  v.GetInt("breaker_max_failures"),
			ResetTimeout: v.GetDuration("breaker_reset_timeout"),
		},
		Tracing:  TracingConfig{JaegerEndpoint: v.GetString("jaeger_endpoint")},
		Admin:    AdminConfig{JWTSecret: v.GetString("admin_jwt_secret")},
		Consumer: ConsumerConfig{MessageTimeout: v.GetDuration("message_timeout")},
	}

	if cfg.Kafka.DLQTopic == "" {
		cfg.Kafka.DLQTopic = cfg.Kafka.Topic + ".dlq"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: KAFKA_BROKER must list at least one broker")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("config: KAFKA_TOPIC is empty")
	}
	if c.Kafka.MaxRetries < 0 {
		return fmt.Errorf("config: KAFKA_MAX_RETRIES must not be negative")
	}
	switch c.LLM.Provider {
	case "openai", "groq":
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config: LLM_TEMPERATURE out of range: %v", c.LLM.Temperature)
	}
	if c.Breaker.MaxFailures <= 0 {
		return fmt.Errorf("config: BREAKER_MAX_FAILURES must be positive")
	}
	return nil
}

// ActiveProvider returns the settings of the selected reasoning backend.
func (c LLMConfig) ActiveProvider() ProviderConfig {
	if c.Provider == "groq" {
		return c.Groq
	}
	return c.OpenAI
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
