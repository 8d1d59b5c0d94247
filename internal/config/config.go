package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SNSRegion                 string
	SNSPlatformApplicationARN string
	SNSStaffTopicARN          string

	PushTimeout     time.Duration
	PushFanOutLimit int
	PushSessionTTL  time.Duration

	MessagesDefaultPageSize int
	MessagesMaxPageSize     int

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SubscribeRateLimit float64 // requests per second per IP
	SubscribeRateBurst int
	AllowedOrigins     []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Messages     string
	PushSessions string
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// Load reads all configuration from environment variables.
func Load() *Config {
	region := getEnv("AWS_REGION", "us-east-1")
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      region,
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Messages:     getEnv("DYNAMO_TABLE_MESSAGES", "messages"),
			PushSessions: getEnv("DYNAMO_TABLE_PUSH_SESSIONS", "push_sessions"),
		},
		SNSRegion:                 getEnv("SNS_REGION", region),
		SNSPlatformApplicationARN: getEnv("SNS_PLATFORM_APPLICATION_ARN", ""),
		SNSStaffTopicARN:          getEnv("SNS_STAFF_TOPIC_ARN", ""),
		PushTimeout:               getEnvDuration("PUSH_TIMEOUT", 5*time.Second),
		PushFanOutLimit:           getEnvInt("PUSH_FANOUT_LIMIT", 8),
		PushSessionTTL:            getEnvDuration("PUSH_SESSION_TTL", 30*24*time.Hour),
		MessagesDefaultPageSize:   getEnvInt("MESSAGES_DEFAULT_PAGE_SIZE", 20),
		MessagesMaxPageSize:       getEnvInt("MESSAGES_MAX_PAGE_SIZE", 100),
		JWTPrivateKeyPath:         getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:          getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:                 time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		SubscribeRateLimit:        getEnvFloat("SUBSCRIBE_RATE_LIMIT", 5),
		SubscribeRateBurst:        getEnvInt("SUBSCRIBE_RATE_BURST", 10),
		AllowedOrigins:            strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings such as "5s" or "720h".
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
