package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMongo  = "mongo"
	StoreMemory = "memory"

	defaultSessionSecret = "change-me-in-production"
)

type Config struct {
	Port        string
	Env         string
	StoreDriver string
	MongoURI    string
	DBName      string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
	CORSOrigin    string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKeyID string
	S3SecretKey   string
	MaxCoverBytes int64
}

// Load reads the configuration from the environment. Call godotenv.Load first to pick up .env.
func Load() (*Config, error) {
	env := strings.ToLower(getEnv("APP_ENV", EnvDevelopment))
	if env != EnvDevelopment && env != EnvProduction {
		return nil, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, env)
	}
	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreMongo))
	if driver != StoreMongo && driver != StoreMemory {
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, driver)
	}
	ttlHours, err := getEnvPositiveInt("SESSION_TTL_HOURS", 24*7)
	if err != nil {
		return nil, err
	}
	maxCoverMB, err := getEnvPositiveInt("MAX_COVER_MB", 5)
	if err != nil {
		return nil, err
	}
	secure, err := strconv.ParseBool(getEnv("COOKIE_SECURE", strconv.FormatBool(env == EnvProduction)))
	if err != nil {
		return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		StoreDriver:        driver,
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:             getEnv("MONGODB_DB", "bookreviews"),
		SessionSecret:      getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionTTL:         time.Duration(ttlHours) * time.Hour,
		CookieSecure:       secure,
		CORSOrigin:         getEnv("CORS_ORIGIN", "*"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),
		S3Bucket:           getEnv("AWS_S3_BUCKET", ""),
		S3Region:           getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:         getEnv("AWS_S3_ENDPOINT", ""),
		S3AccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
		MaxCoverBytes:      int64(maxCoverMB) * 1024 * 1024,
	}
	if cfg.Production() && cfg.SessionSecret == defaultSessionSecret {
		return nil, fmt.Errorf("SESSION_SECRET must be set to a strong secret in production")
	}
	return cfg, nil
}

func (c *Config) Production() bool { return c.Env == EnvProduction }

// GoogleEnabled reports whether the OAuth sign-in routes can work.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvPositiveInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
