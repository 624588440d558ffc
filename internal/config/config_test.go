package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"
  public_base_url: "https://calc.example.com/"
  allowed_origins: ["https://calc.example.com"]

database:
  url: "postgres://leads:secret@db:5432/leads?sslmode=disable"

calculator:
  roi_strategy: realistic
  recovery_strategy: paid_over_principal

rate_limit:
  backend: redis
  max_requests: 5

mail:
  from_email: "info@example.com"
  smtp:
    host: "smtp.example.com"
    port: 465
    secure: ssl

relay:
  enabled: true
  api_url: "https://api.cliente.com/recibir-lead"
  cron_token: "s3cret"
  pause_millis: 100
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "https://calc.example.com", cfg.Server.PublicBaseURL)
	assert.Equal(t, []string{"https://calc.example.com"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, "postgres://leads:secret@db:5432/leads?sslmode=disable", cfg.Database.URL)

	assert.Equal(t, "realistic", cfg.Calculator.ROIStrategy)
	assert.Equal(t, "paid_over_principal", cfg.Calculator.RecoveryStrategy)

	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 3600, cfg.RateLimit.WindowSeconds)

	assert.Equal(t, "smtp.example.com", cfg.Mail.SMTP.Host)
	assert.Equal(t, 465, cfg.Mail.SMTP.Port)
	assert.Equal(t, "ssl", cfg.Mail.SMTP.Secure)

	assert.True(t, cfg.Relay.Enabled)
	assert.Equal(t, "s3cret", cfg.Relay.CronToken)
	assert.Equal(t, 100*time.Millisecond, cfg.Relay.Pause())
}

func TestLoadDefaults(t *testing.T) {
	configPath := writeConfig(t, `
mail:
  from_email: "info@example.com"
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "plain", cfg.Calculator.ROIStrategy)
	assert.Equal(t, "usury_excess", cfg.Calculator.RecoveryStrategy)
	assert.Equal(t, 20.0, cfg.Calculator.LegalRate)
	assert.Equal(t, "sql", cfg.RateLimit.Backend)
	assert.Equal(t, 3, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window())
	assert.Equal(t, 24*time.Hour, cfg.RateLimit.Retention())
	assert.Equal(t, 5*time.Second, cfg.Mail.SMTP.Timeout())
	assert.Equal(t, "localhost:25", cfg.Mail.Local.Addr)
	assert.Equal(t, 10*time.Second, cfg.Relay.Timeout())
	assert.Equal(t, 250*time.Millisecond, cfg.Relay.Pause())
	assert.Equal(t, 50, cfg.Relay.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Relay.Lease())
	assert.False(t, cfg.Relay.Enabled)
	assert.False(t, cfg.Webhook.InsecureSkipVerify)
	assert.Zero(t, cfg.Webhook.MaxRetries)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.True(t, cfg.Log.Redact())
}

func TestShippedConfigWebhookSingleAttempt(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Webhook.MaxRetries)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestTrustedNets(t *testing.T) {
	nets, err := ServerConfig{TrustedProxies: []string{"10.0.0.0/8", " 127.0.0.1 ", "::1", ""}}.TrustedNets()
	require.NoError(t, err)
	require.Len(t, nets, 3)
	assert.True(t, nets[0].Contains(net.ParseIP("10.20.30.40")))
	assert.True(t, nets[1].Contains(net.ParseIP("127.0.0.1")))
	assert.False(t, nets[1].Contains(net.ParseIP("127.0.0.2")))
	assert.True(t, nets[2].Contains(net.ParseIP("::1")))

	_, err = ServerConfig{TrustedProxies: []string{"not-an-ip"}}.TrustedNets()
	assert.Error(t, err)
	_, err = ServerConfig{TrustedProxies: []string{"10.0.0.0/99"}}.TrustedNets()
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	configPath := writeConfig(t, `
database:
  url: "postgres://file"
relay:
  cron_token: "file-token"
`)

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("CRON_TOKEN", "env-token")
	t.Setenv("RELAY_ENABLED", "true")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("PUBLIC_BASE_URL", "https://env.example.com/")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.1")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.Database.URL)
	assert.Equal(t, "env-token", cfg.Relay.CronToken)
	assert.True(t, cfg.Relay.Enabled)
	assert.Equal(t, 2525, cfg.Mail.SMTP.Port)
	assert.Equal(t, "https://env.example.com", cfg.Server.PublicBaseURL)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, cfg.Server.TrustedProxies)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "server: [unclosed")
	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestRedactOverride(t *testing.T) {
	off := false
	assert.False(t, LogConfig{RedactPII: &off}.Redact())
}
