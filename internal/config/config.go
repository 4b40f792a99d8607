package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Kafka
	KafkaBrokers string
	EventsTopic  string

	// API Configuration
	APIPort string
	APIHost string

	// Nhanh.vn
	NhanhAPIURL     string
	NhanhAPIVersion string
	NhanhAppID      string
	NhanhSecretKey  string

	// Webhook
	WebhookToken string

	// Imported product images
	MediaDir string

	// Remote call tuning
	RequestTimeoutSeconds int

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:           getEnv("DATABASE_URL", "sqlite://nhanhsync.db"),
		KafkaBrokers:          getEnv("KAFKA_BROKERS", "localhost:9092"),
		EventsTopic:           getEnv("EVENTS_TOPIC", "store-events"),
		APIPort:               getEnv("API_PORT", "8080"),
		APIHost:               getEnv("API_HOST", "0.0.0.0"),
		NhanhAPIURL:           getEnv("NHANH_API_URL", "https://open.nhanh.vn"),
		NhanhAPIVersion:       getEnv("NHANH_API_VERSION", "2.0"),
		NhanhAppID:            getEnv("NHANH_APP_ID", ""),
		NhanhSecretKey:        getEnv("NHANH_SECRET_KEY", ""),
		WebhookToken:          getEnv("WEBHOOK_TOKEN", ""),
		MediaDir:              getEnv("MEDIA_DIR", "./media"),
		RequestTimeoutSeconds: getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 45),
		Env:                   getEnv("ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
