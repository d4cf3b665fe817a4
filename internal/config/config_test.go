package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.InMemory())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CONFIG_FILE", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "addr: \":9000\"\njwtSecret: from-file\nstripe:\n  currency: eur\nsmtp:\n  host: mail.local\n  user: shop@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADDR", ":9100")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("MAIL_FROM", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "eur", cfg.Stripe.Currency)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "shop@example.com", cfg.SMTP.From)
}

func TestLoad_BadPort(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SMTP_PORT", "abc")

	_, err := Load()
	require.Error(t, err)
}
