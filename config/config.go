package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SettingsBackendMemory   = "memory"
	SettingsBackendValkey   = "valkey"
	SettingsBackendDynamoDB = "dynamodb"
)

type Config struct {
	Env      string
	LogLevel slog.Level

	SettingsBackend string
	SettingsProfile string
	SettingsTable   string

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool

	AWSEndpoint string
	AWSRegion   string

	KafkaBroker         string
	KafkaGroupID        string
	BridgeRequestTopic  string
	BridgeResponseTopic string
	BridgeTimeout       time.Duration

	BatchSize  int
	BatchDelay time.Duration

	MarkerBackend string
	ProcessedTTL  time.Duration

	OpenAIModel    string
	AnthropicModel string
}

func Load() Config {
	return Config{
		Env:      getEnv("APP_ENV", "dev"),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),

		SettingsBackend: strings.ToLower(getEnv("SETTINGS_BACKEND", SettingsBackendMemory)),
		SettingsProfile: getEnv("SETTINGS_PROFILE", "default"),
		SettingsTable:   getEnv("DYNAMODB_SETTINGS_TABLE", "Settings"),

		ValkeyAddress:  getEnv("VALKEY_INIT_ADDRESS", "localhost:6379"),
		ValkeyPassword: getEnv("VALKEY_PASSWORD", ""),
		ValkeyTLS:      getEnv("VALKEY_TLS", "false") == "true",

		AWSEndpoint: getEnv("AWS_ENDPOINT", ""),
		AWSRegion:   getEnv("AWS_REGION", "us-west-2"),

		KafkaBroker:         getEnv("KAFKA_BROKER", "localhost:29092"),
		KafkaGroupID:        getEnv("KAFKA_CONSUMER_GROUP_ID", "onlylikes"),
		BridgeRequestTopic:  getEnv("BRIDGE_REQUEST_TOPIC", "onlylikes-requests"),
		BridgeResponseTopic: getEnv("BRIDGE_RESPONSE_TOPIC", "onlylikes-responses"),
		BridgeTimeout:       getDuration("BRIDGE_TIMEOUT", 15*time.Second),

		BatchSize:  getInt("BATCH_SIZE", 10),
		BatchDelay: getDuration("BATCH_DELAY", time.Second),

		MarkerBackend: strings.ToLower(getEnv("PROCESSED_MARKER", SettingsBackendMemory)),
		ProcessedTTL:  getDuration("PROCESSED_TTL", 24*time.Hour),

		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-2.1"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}
