package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "DATABASE_URL", "JWT_SECRET", "CHAT_MODE", "CHAT_PERSONA", "OPENAI_MODEL", "DB_CONNECT_ATTEMPTS", "DB_CONNECT_BACKOFF"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "3001", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "sqlite://./data/serenio.db", cfg.DatabaseURL)
	assert.Equal(t, ModeAuthenticated, cfg.ChatMode)
	assert.Equal(t, DefaultPersona, cfg.Persona)
	assert.Equal(t, "gpt-4", cfg.OpenAIModel)
	assert.Equal(t, 5, cfg.DBConnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.DBConnectBackoff)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.UsingDevJWT)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadAnonymousAndLists(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("CHAT_MODE", "anonymous")
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.1, 192.168.0.0/16 ,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://serenio.app")

	cfg := Load()

	assert.True(t, cfg.IsAnonymous())
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.RateLimitWhitelist)
	assert.Equal(t, []string{"https://serenio.app"}, cfg.CORSAllowedOrigins)
}

func TestLoadUnknownModeFallsBack(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("CHAT_MODE", "group")

	assert.Equal(t, ModeAuthenticated, Load().ChatMode)
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/serenio")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHAT_MODE", "")

	assert.PanicsWithValue(t, "JWT_SECRET is required in production", func() { Load() })
}

func TestWithSSLMode(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		production bool
		want       string
	}{
		{"production adds require", "postgres://u:p@db:5432/serenio", true, "postgres://u:p@db:5432/serenio?sslmode=require"},
		{"development adds disable", "postgres://u:p@localhost/serenio", false, "postgres://u:p@localhost/serenio?sslmode=disable"},
		{"explicit mode kept", "postgres://db/serenio?sslmode=verify-full", true, "postgres://db/serenio?sslmode=verify-full"},
		{"sqlite untouched", "sqlite://./data/serenio.db", true, "sqlite://./data/serenio.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithSSLMode(tt.in, tt.production))
		})
	}
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "postgres://serenio:REDACTED@db:5432/app", RedactURL("postgres://serenio:hunter2@db:5432/app"))
	assert.Equal(t, "sqlite://./data/serenio.db", RedactURL("sqlite://./data/serenio.db"))
}
