package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	for _, key := range []string{"DB_URL", "JWT_SECRET", "ENV", "HTTP_ADDR"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeEnv(t, `DB_URL=postgres://localhost/payments
JWT_SECRET=secret
ADMIN_CHAT_ID=-100123
SESSION_TTL=2h
KAFKA_BROKERS=a:9092,b:9092
XBET_HASH=abc
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/payments", cfg.DB_URL)
	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.Equal(t, int64(-100123), cfg.AdminChatID)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "abc", cfg.Casino.XbetHash)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://apimb.com", cfg.Casino.MostbetURL)
	assert.Equal(t, 30*time.Second, cfg.Casino.Timeout)
	assert.Equal(t, int64(10), cfg.LoginMaxAttempts)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigEnvironmentWins(t *testing.T) {
	path := writeEnv(t, "DB_URL=postgres://file\nJWT_SECRET=file-secret\n")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("ENV", "production")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv("DB_URL", "postgres://env")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.DB_URL)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	_, err := LoadConfig(writeEnv(t, "JWT_SECRET=s\n"))
	assert.EqualError(t, err, "DB_URL is required")

	_, err = LoadConfig(writeEnv(t, "DB_URL=postgres://x\n"))
	assert.EqualError(t, err, "JWT_SECRET is required")
}
