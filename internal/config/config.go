package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Chat modes select which conversation variant the server exposes.
const (
	ModeAuthenticated = "authenticated"
	ModeAnonymous     = "anonymous"
)

// DefaultPersona is the system instruction prepended to every completion.
const DefaultPersona = "You are a compassionate mental health AI assistant. Respond with empathy and understanding."

const devJWTSecret = "serenio-development-secret-change-me"

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string
	RedisURL    string

	// Startup
	DBConnectAttempts int
	DBConnectBackoff  time.Duration

	// Sessions
	JWTSecret   string
	TokenTTL    time.Duration
	UsingDevJWT bool

	// Conversation
	ChatMode      string
	Persona       string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	// HTTP
	CORSAllowedOrigins []string

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "3001"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RedisURL:          os.Getenv("REDIS_URL"),
		DBConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		DBConnectBackoff:  getEnvDuration("DB_CONNECT_BACKOFF", 2*time.Second),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		ChatMode:          getEnv("CHAT_MODE", ModeAuthenticated),
		Persona:           getEnv("CHAT_PERSONA", DefaultPersona),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4"),
		AutoBlockEnabled:  getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
	}

	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.RateLimitWhitelist = splitList(os.Getenv("RATE_LIMIT_WHITELIST"))

	if cfg.ChatMode != ModeAnonymous {
		cfg.ChatMode = ModeAuthenticated
	}

	// In production, require the database, signing secret and model key
	if cfg.Env == "production" {
		if os.Getenv("DATABASE_URL") == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.JWTSecret == "" && cfg.ChatMode == ModeAuthenticated {
			panic("JWT_SECRET is required in production")
		}
		if cfg.OpenAIKey == "" {
			panic("OPENAI_API_KEY is required in production")
		}
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
		cfg.UsingDevJWT = true
	}

	cfg.DatabaseURL = WithSSLMode(getEnv("DATABASE_URL", "sqlite://./data/serenio.db"), cfg.Env == "production")

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsAnonymous reports whether the shared, unauthenticated chat is served.
func (c *Config) IsAnonymous() bool {
	return c.ChatMode == ModeAnonymous
}

// WithSSLMode sets sslmode on a Postgres URL when it is not already present:
// require in production, disable elsewhere. Other URLs are returned unchanged.
func WithSSLMode(databaseURL string, production bool) string {
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return databaseURL
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return databaseURL
	}

	q := u.Query()
	if q.Get("sslmode") != "" {
		return databaseURL
	}
	if production {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactURL hides credentials in a connection URL for logging.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "REDACTED")
	return u.String()
}

func splitList(raw string) []string {
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
