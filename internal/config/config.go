// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	WebhookPath    string        `yaml:"webhook_path"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig is optional; an empty URL disables the processed-event cache.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type PaymentConfig struct {
	Stripe struct {
		WebhookSecret string        `yaml:"webhook_secret"`
		Tolerance     time.Duration `yaml:"tolerance"`
	} `yaml:"stripe"`
}

type LedgerConfig struct {
	StaleAfter    time.Duration `yaml:"stale_after"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepBatch    int           `yaml:"sweep_batch"`
}

type RewardsConfig struct {
	// nil means unset; an explicit 0 disables the default commission
	DefaultRateBps  *int64 `yaml:"default_rate_bps"`
	PointsUnitMinor int64  `yaml:"points_unit_minor"`
	PointsPerUnit   int64  `yaml:"points_per_unit"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type NotifyConfig struct {
	Channel     string        `yaml:"channel"` // smtp|amqp|log
	From        string        `yaml:"from"`
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	SendTimeout time.Duration `yaml:"send_timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	SMTP        SMTPConfig    `yaml:"smtp"`
	AMQP        AMQPConfig    `yaml:"amqp"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	RateLimit int    `yaml:"rate_limit"` // requests per client per minute, 0 disables
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Rewards  RewardsConfig  `yaml:"rewards"`
	Notify   NotifyConfig   `yaml:"notify"`
	Admin    AdminConfig    `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads -config and -dev from the command line, then loads.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads path, overlays secrets from the environment (and .env when
// present), applies defaults and validates.
func Load(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		// dev may run from environment alone
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Payment.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Notify.SMTP.Password, "SMTP_PASSWORD")
	override(&cfg.Notify.AMQP.URL, "AMQP_URL")
	override(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	override(&cfg.HTTP.Addr, "HTTP_ADDR")
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.HandlerTimeout <= 0 {
		cfg.HTTP.HandlerTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		cfg.HTTP.MaxBodyBytes = 64 << 10
	}
	if cfg.HTTP.WebhookPath == "" {
		cfg.HTTP.WebhookPath = "/webhooks/stripe"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "payment-events"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL, 72*time.Hour)

	if cfg.Ledger.StaleAfter <= 0 {
		cfg.Ledger.StaleAfter = 10 * time.Minute
	}
	if cfg.Ledger.SweepInterval <= 0 {
		cfg.Ledger.SweepInterval = time.Minute
	}
	if cfg.Ledger.SweepBatch <= 0 {
		cfg.Ledger.SweepBatch = 50
	}

	if cfg.Rewards.DefaultRateBps == nil {
		rate := int64(1000)
		cfg.Rewards.DefaultRateBps = &rate
	}
	if cfg.Rewards.PointsUnitMinor <= 0 {
		cfg.Rewards.PointsUnitMinor = 100
	}
	if cfg.Rewards.PointsPerUnit <= 0 {
		cfg.Rewards.PointsPerUnit = 1
	}

	cfg.Notify.Channel = strings.ToLower(strings.TrimSpace(cfg.Notify.Channel))
	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = "smtp"
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = cfg.Notify.Workers * 4
	}
	if cfg.Notify.SendTimeout <= 0 {
		cfg.Notify.SendTimeout = 10 * time.Second
	}
	if cfg.Notify.MaxAttempts <= 0 {
		cfg.Notify.MaxAttempts = 3
	}
	if cfg.Notify.Backoff <= 0 {
		cfg.Notify.Backoff = 200 * time.Millisecond
	}
	if cfg.Notify.SMTP.Port == 0 {
		cfg.Notify.SMTP.Port = 587
	}
	if cfg.Notify.AMQP.RoutingKey == "" {
		cfg.Notify.AMQP.RoutingKey = "email.outbound"
	}

	if cfg.Admin.Issuer == "" {
		cfg.Admin.Issuer = "payment-events"
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Payment.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("payment.stripe.webhook_secret is required"))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Admin.JWTSecret == "" {
		errs = append(errs, errors.New("admin.jwt_secret is required"))
	}
	if r := c.Rewards.DefaultRateBps; r != nil && (*r < 0 || *r > 10000) {
		errs = append(errs, errors.New("rewards.default_rate_bps must be between 0 and 10000"))
	}
	if c.Notify.From == "" && c.Notify.Channel != "log" {
		errs = append(errs, errors.New("notify.from is required"))
	}
	switch c.Notify.Channel {
	case "smtp":
		if c.Notify.SMTP.Host == "" {
			errs = append(errs, errors.New("notify.smtp.host is required"))
		}
	case "amqp":
		if c.Notify.AMQP.URL == "" {
			errs = append(errs, errors.New("notify.amqp.url is required"))
		}
	case "log":
		if !c.Runtime.Dev {
			errs = append(errs, errors.New("notify.channel log is only allowed with -dev"))
		}
	default:
		errs = append(errs, fmt.Errorf("notify.channel %q is not one of smtp, amqp, log", c.Notify.Channel))
	}
	return errors.Join(errs...)
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
