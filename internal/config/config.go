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
	SNSRegion      string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	RefreshTokenDur   time.Duration

	// SMS second-factor parameters.
	CodeAlphabet     string
	CodeLength       int
	CodeTTL          time.Duration
	EscrowSecretSize int
	// RateLimitWindowHours / RateLimitMaxRequests bound how many codes a
	// user may request. Zero for either disables the limit entirely.
	RateLimitWindowHours float64
	RateLimitMaxRequests int
	ChallengeTTL         time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users      string
	Sessions   string
	Codes      string
	Challenges string
}

const defaultCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:      getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:   getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Codes:      getEnv("DYNAMO_TABLE_CODES", "auth_codes"),
			Challenges: getEnv("DYNAMO_TABLE_CHALLENGES", "auth_challenges"),
		},
		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenDur:   time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		CodeAlphabet:         getEnv("AUTH_SMS_CODE_CHARS", defaultCodeAlphabet),
		CodeLength:           getEnvInt("AUTH_SMS_CODE_LENGTH", 8),
		CodeTTL:              time.Duration(getEnvInt("AUTH_SMS_CODE_TTL_MINUTES", 15)) * time.Minute,
		EscrowSecretSize:     getEnvInt("AUTH_SMS_SECRET_SIZE", 128),
		RateLimitWindowHours: getEnvFloat("AUTH_SMS_RATE_LIMIT_HOURS", 24),
		RateLimitMaxRequests: getEnvInt("AUTH_SMS_RATE_LIMIT_MAX", 10),
		ChallengeTTL:         time.Duration(getEnvInt("AUTH_SMS_CHALLENGE_TTL_MINUTES", 30)) * time.Minute,

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
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
