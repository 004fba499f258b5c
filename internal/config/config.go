package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port           string
	APIBasePath    string
	PostgresDSN    string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	JWTSecret      string
	TokenTTL       time.Duration
	TokenIssuer    string
	// RecheckUser makes the authentication gate confirm that a token's
	// subject still exists before binding it to the request.
	RecheckUser bool
	// UniqueRegistrations creates the (user, event) unique index in Mongo.
	UniqueRegistrations bool
	CORSOrigins         []string
	LogLevel            string
}

const DefaultTokenTTL = 10 * time.Hour

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                getenv("PORT", "8086"),
		APIBasePath:         getenv("API_BASE_PATH", "/api"),
		PostgresDSN:         getenv("POSTGRES_DSN", ""),
		MongoURI:            getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:             getenv("MONGO_DB", "event_registration"),
		RedisAddr:           getenv("REDIS_ADDR", ""),
		RedisPassword:       getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:       getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey:      getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:         getenv("MINIO_BUCKET", "event-images"),
		MinioUseSSL:         getenv("MINIO_USE_SSL", "false") == "true",
		JWTSecret:           getenv("JWT_SECRET", ""),
		TokenTTL:            getduration("TOKEN_TTL", DefaultTokenTTL),
		TokenIssuer:         getenv("TOKEN_ISSUER", "event-registration"),
		RecheckUser:         getenv("AUTH_RECHECK_USER", "true") == "true",
		UniqueRegistrations: getenv("REGISTRATION_UNIQUE_INDEX", "true") == "true",
		CORSOrigins:         splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
		LogLevel:            getenv("LOG_LEVEL", "info"),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN must be set")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
