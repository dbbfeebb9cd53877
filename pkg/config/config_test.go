package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "products.csv", cfg.Store.Path)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.RelayHost)
	assert.Equal(t, 587, cfg.SMTP.RelayPort)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Backoff)
	assert.Equal(t, 24*time.Hour, cfg.Check.Interval)
	assert.Equal(t, 1, cfg.Check.Workers)
	assert.Equal(t, "span.a-price-whole", cfg.Selectors.Whole)
	assert.True(t, cfg.Web.Enabled)

	assert.Error(t, cfg.Validate())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
store:
  path: /var/lib/price-tracker/products.csv
smtp:
  sender_address: alerts@example.com
  relay_host: smtp.example.com
  relay_port: 2525
fetch:
  max_attempts: 5
  backoff: 250ms
check:
  interval: 6h
  workers: 4
web:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("PRICE_TRACKER_SMTP_CREDENTIAL", "app-password")
	t.Setenv("PRICE_TRACKER_FETCH_MAX_ATTEMPTS", "7")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/price-tracker/products.csv", cfg.Store.Path)
	assert.Equal(t, "alerts@example.com", cfg.SMTP.SenderAddress)
	assert.Equal(t, "app-password", cfg.SMTP.Credential)
	assert.Equal(t, 2525, cfg.SMTP.RelayPort)
	assert.Equal(t, 7, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.Backoff)
	assert.Equal(t, 6*time.Hour, cfg.Check.Interval)
	assert.Equal(t, 4, cfg.Check.Workers)
	assert.False(t, cfg.Web.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PRICE_TRACKER_SMTP_SENDER_ADDRESS=dotenv@example.com\n"), 0o644))
	t.Setenv("PRICE_TRACKER_SMTP_SENDER_ADDRESS", "")
	os.Unsetenv("PRICE_TRACKER_SMTP_SENDER_ADDRESS")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "dotenv@example.com", cfg.SMTP.SenderAddress)
}

func TestValidateAllowsUnauthenticatedRelay(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg.SMTP.SenderAddress = "alerts@example.com"
	cfg.SMTP.RelayHost = "relay.internal"
	cfg.SMTP.RelayPort = 25
	assert.Empty(t, cfg.SMTP.Credential)
	assert.NoError(t, cfg.Validate())

	cfg.SMTP.RelayPort = 0
	assert.Error(t, cfg.Validate())
}
