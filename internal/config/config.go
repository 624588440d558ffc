package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Log        LogConfig        `yaml:"log"`
	Funnels    FunnelsConfig    `yaml:"funnels"`
	Calculator CalculatorConfig `yaml:"calculator"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Mail       MailConfig       `yaml:"mail"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Relay      RelayConfig      `yaml:"relay"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Storage    StorageConfig    `yaml:"storage"`
	Admin      AdminConfig      `yaml:"admin"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	PublicBaseURL  string   `yaml:"public_base_url"` // used for report links and the tracking pixel
	AllowedOrigins []string `yaml:"allowed_origins"`
	TrustedProxies []string `yaml:"trusted_proxies"` // CIDRs or IPs allowed to set X-Forwarded-For / X-Real-IP
}

// TrustedNets parses TrustedProxies. A bare IP is a single-host network.
func (c ServerConfig) TrustedNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, p := range c.TrustedProxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid IP", p)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// RedisConfig is optional. An empty URL disables Redis-backed features.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether a Redis URL was configured.
func (c RedisConfig) Enabled() bool { return c.URL != "" }

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact returns the effective PII redaction setting (default on).
func (c LogConfig) Redact() bool {
	if c.RedactPII == nil {
		return true
	}
	return *c.RedactPII
}

// FunnelsConfig holds per-funnel presentation settings.
type FunnelsConfig struct {
	ROI       FunnelConfig `yaml:"roi"`
	Revolving FunnelConfig `yaml:"revolving"`
}

// FunnelConfig controls which side effects a funnel triggers.
type FunnelConfig struct {
	SuccessURL  string `yaml:"success_url"`
	NotifyEmail bool   `yaml:"notify_email"`
	Webhook     bool   `yaml:"webhook"`
}

// CalculatorConfig selects the financial strategies.
type CalculatorConfig struct {
	ROIStrategy      string  `yaml:"roi_strategy"`      // "plain" or "realistic"
	RecoveryStrategy string  `yaml:"recovery_strategy"` // "usury_excess" or "paid_over_principal"
	LegalRate        float64 `yaml:"legal_rate"`        // APR above which interest counts as recoverable
}

// RateLimitConfig holds the per-IP submission limit.
type RateLimitConfig struct {
	Backend          string `yaml:"backend"` // "sql" or "redis"
	MaxRequests      int    `yaml:"max_requests"`
	WindowSeconds    int    `yaml:"window_seconds"`
	RetentionSeconds int    `yaml:"retention_seconds"`
}

// Window returns the rolling window as a duration
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Retention returns how long bookkeeping rows are kept
func (c RateLimitConfig) Retention() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}

// MailConfig holds the notification mail transports, tried in order:
// authenticated SMTP, optional SES, then the unauthenticated local relay.
type MailConfig struct {
	FromEmail string          `yaml:"from_email"`
	FromName  string          `yaml:"from_name"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	SES       SESConfig       `yaml:"ses"`
	Local     LocalMailConfig `yaml:"local"`
}

// SMTPConfig holds the authenticated submission endpoint.
type SMTPConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	Secure         string `yaml:"secure"` // "ssl" => implicit TLS, anything else => STARTTLS
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SMTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES settings for the optional middle mail stage
type SESConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// LocalMailConfig is the unauthenticated fallback relay (usually the host MTA).
type LocalMailConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c LocalMailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WebhookConfig holds the marketing-automation push target.
type WebhookConfig struct {
	URL                string `yaml:"url"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	MaxRetries         int    `yaml:"max_retries"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Timeout returns the configured timeout as a duration
func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RelayConfig holds the batch relay settings.
type RelayConfig struct {
	Enabled         bool   `yaml:"enabled"` // false => dry-run mode, leads are marked relayed without a call
	APIURL          string `yaml:"api_url"`
	CronToken       string `yaml:"cron_token"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	PauseMillis     int    `yaml:"pause_millis"`
	BatchSize       int    `yaml:"batch_size"`
	LeaseSeconds    int    `yaml:"lease_seconds"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
	IntervalMinutes int    `yaml:"interval_minutes"` // 0 disables the periodic run in cmd/worker
}

// Timeout returns the configured timeout as a duration
func (c RelayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Pause returns the delay between two external calls
func (c RelayConfig) Pause() time.Duration {
	return time.Duration(c.PauseMillis) * time.Millisecond
}

// Lease returns how long a claim is honoured before it can be reclaimed
func (c RelayConfig) Lease() time.Duration {
	return time.Duration(c.LeaseSeconds) * time.Second
}

// LockTTL returns the distributed lock expiry
func (c RelayConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Interval returns the periodic relay interval
func (c RelayConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// TrackingConfig holds the open-event pipeline settings.
type TrackingConfig struct {
	SQSQueueURL   string `yaml:"sqs_queue_url"` // empty => events are written straight to PostgreSQL
	AWSRegion     string `yaml:"aws_region"`
	RetentionDays int    `yaml:"retention_days"`
}

// StorageConfig holds relay report archival settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Prefix      string `yaml:"s3_prefix"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// AdminConfig gates the admin JSON API.
type AdminConfig struct {
	Token string `yaml:"token"` // empty disables the /admin routes
}

// CleanupConfig drives the background pruning worker.
type CleanupConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

// Interval returns the cleanup interval as a duration
func (c CleanupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.PublicBaseURL == "" {
		cfg.Server.PublicBaseURL = "http://localhost:8080"
	}
	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Funnels.ROI.SuccessURL == "" {
		cfg.Funnels.ROI.SuccessURL = "/success"
	}
	if cfg.Calculator.ROIStrategy == "" {
		cfg.Calculator.ROIStrategy = "plain"
	}
	if cfg.Calculator.RecoveryStrategy == "" {
		cfg.Calculator.RecoveryStrategy = "usury_excess"
	}
	if cfg.Calculator.LegalRate == 0 {
		cfg.Calculator.LegalRate = 20
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "sql"
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 3
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 3600
	}
	if cfg.RateLimit.RetentionSeconds == 0 {
		cfg.RateLimit.RetentionSeconds = 86400
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "Azuanet Tools"
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.Mail.SMTP.TimeoutSeconds == 0 {
		cfg.Mail.SMTP.TimeoutSeconds = 5
	}
	if cfg.Mail.SES.Region == "" {
		cfg.Mail.SES.Region = "eu-west-1"
	}
	if cfg.Mail.Local.Addr == "" {
		cfg.Mail.Local.Addr = "localhost:25"
	}
	if cfg.Mail.Local.TimeoutSeconds == 0 {
		cfg.Mail.Local.TimeoutSeconds = 5
	}
	if cfg.Webhook.TimeoutSeconds == 0 {
		cfg.Webhook.TimeoutSeconds = 10
	}
	if cfg.Relay.TimeoutSeconds == 0 {
		cfg.Relay.TimeoutSeconds = 10
	}
	if cfg.Relay.PauseMillis == 0 {
		cfg.Relay.PauseMillis = 250
	}
	if cfg.Relay.BatchSize == 0 {
		cfg.Relay.BatchSize = 50
	}
	if cfg.Relay.LeaseSeconds == 0 {
		cfg.Relay.LeaseSeconds = 300
	}
	if cfg.Relay.LockTTLSeconds == 0 {
		cfg.Relay.LockTTLSeconds = 600
	}
	if cfg.Tracking.AWSRegion == "" {
		cfg.Tracking.AWSRegion = "eu-west-1"
	}
	if cfg.Tracking.RetentionDays == 0 {
		cfg.Tracking.RetentionDays = 90
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "eu-west-1"
	}
	if cfg.Storage.S3Prefix == "" {
		cfg.Storage.S3Prefix = "relay-reports/"
	}
	if cfg.Cleanup.IntervalMinutes == 0 {
		cfg.Cleanup.IntervalMinutes = 60
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.Server.PublicBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}

	// Mail overrides
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Mail.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mail.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Mail.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		cfg.Mail.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_SECURE"); v != "" {
		cfg.Mail.SMTP.Secure = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Mail.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Mail.SES.SecretKey = v
	}

	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}

	// Relay overrides
	if v := os.Getenv("RELAY_API_URL"); v != "" {
		cfg.Relay.APIURL = v
	}
	if v := os.Getenv("RELAY_ENABLED"); v != "" {
		cfg.Relay.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("CRON_TOKEN"); v != "" {
		cfg.Relay.CronToken = v
	}

	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Admin.Token = v
	}
	if v := os.Getenv("SQS_TRACKING_QUEUE_URL"); v != "" {
		cfg.Tracking.SQSQueueURL = v
	}
	if v := os.Getenv("REPORTS_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}

	return cfg, nil
}
