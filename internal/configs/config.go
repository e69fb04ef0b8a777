package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	URL string
}

type RabbitMQConfig struct {
	URL string
}

type RESTConfig struct {
	Port string
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host      string
	Port      int
	TagPrefix string
	Enabled   bool
	Level     string
}

type ConsumerConfig struct {
	PrefetchCount int
	MaxRetries    int
	RetryTTL      int // milliseconds spent in the retry-wait queue
}

// AppConfig holds the whole application configuration.
type AppConfig struct {
	AppName      string
	Postgres     PostgresConfig
	RabbitMQ     RabbitMQConfig
	Rest         RESTConfig
	Consumer     ConsumerConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig loads configuration from the environment, optionally seeding it
// from a .env file first.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: Could not load .env file (path: %v): %v. Relying on the environment.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "reid-service")

	cfg.Postgres.URL = os.Getenv("DATABASE_URL")
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL environment variable is required")
	}

	cfg.Rest.Port = getEnvAsString("PORT", "8083")

	cfg.Consumer.PrefetchCount = getEnvAsInt("CONSUMER_PREFETCH_COUNT", 10)
	cfg.Consumer.MaxRetries = getEnvAsInt("CONSUMER_MAX_RETRIES", 3)
	cfg.Consumer.RetryTTL = getEnvAsInt("CONSUMER_RETRY_TTL_MS", 30000)

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.TagPrefix = getEnvAsString("FLUENTBIT_TAG_PREFIX", cfg.AppName)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}
