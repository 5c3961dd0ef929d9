// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Portal        PortalConfig        `yaml:"portal"`
	Browser       BrowserConfig       `yaml:"browser"`
	Captcha       CaptchaConfig       `yaml:"captcha"`
	Enrich        EnrichConfig        `yaml:"enrich"`
	Store         StoreConfig         `yaml:"store"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// PortalConfig defines the e-invoice portal endpoints, credentials and
// protocol pacing.
type PortalConfig struct {
	Phone    string `yaml:"phone"`
	Password string `yaml:"password"`

	LoginURL  string `yaml:"login_url"`
	SearchURL string `yaml:"search_url"`
	APIURL    string `yaml:"api_url"`
	Origin    string `yaml:"origin"`
	Timezone  string `yaml:"timezone"`

	PageSize        int  `yaml:"page_size"`
	MaxRelogin      *int `yaml:"max_relogin"` // nil means 10; 0 disables re-login
	CaptchaAttempts int  `yaml:"captcha_attempts"`

	CaptchaRetryDelay time.Duration `yaml:"captcha_retry_delay"`
	PreflightDelay    time.Duration `yaml:"preflight_delay"`
	PageDelay         time.Duration `yaml:"page_delay"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	ElementTimeout    time.Duration `yaml:"element_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Location resolves the configured portal time zone.
func (p *PortalConfig) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}

// RateLimitConfig defines portal API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// BrowserConfig defines the headless Chrome settings used for login.
type BrowserConfig struct {
	ExecPath     string `yaml:"exec_path"`
	Headless     *bool  `yaml:"headless"`
	UserAgent    string `yaml:"user_agent"`
	WindowWidth  int    `yaml:"window_width"`
	WindowHeight int    `yaml:"window_height"`
}

// CaptchaConfig defines the OCR service used to read login captchas.
type CaptchaConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EnrichConfig defines the categorization/description LLM settings.
type EnrichConfig struct {
	Backend    string          `yaml:"backend"` // none, openai, anthropic
	OpenAI     OpenAIConfig    `yaml:"openai"`
	Anthropic  AnthropicConfig `yaml:"anthropic"`
	Persona    string          `yaml:"persona"`
	Categories []string        `yaml:"categories"`
	Timeout    time.Duration   `yaml:"timeout"`
}

// OpenAIConfig defines OpenAI (or OpenAI-compatible) settings.
type OpenAIConfig struct {
	Endpoint        string `yaml:"endpoint"`
	APIKey          string `yaml:"api_key"`
	CategorizeModel string `yaml:"categorize_model"`
	DescribeModel   string `yaml:"describe_model"`
}

// DefaultOpenAIEndpoint is the public OpenAI API base URL.
const DefaultOpenAIEndpoint = "https://api.openai.com/v1"

// Hosted reports whether Endpoint is the public OpenAI API, which refuses
// requests without an API key.
func (o OpenAIConfig) Hosted() bool {
	return o.Endpoint == "" || strings.TrimSuffix(o.Endpoint, "/") == DefaultOpenAIEndpoint
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// StoreConfig selects and configures the dedup store.
type StoreConfig struct {
	Driver   string         `yaml:"driver"` // postgres, redis, sqlite, memory
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.PoolSize,
	)
}

// RedisConfig defines Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SQLiteConfig defines the SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
}

// TelegramConfig defines Telegram bot settings.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIURL   string `yaml:"api_url"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// ScheduleConfig defines the cycle triggers.
type ScheduleConfig struct {
	MinInterval    time.Duration `yaml:"min_interval"`
	MaxInterval    time.Duration `yaml:"max_interval"`
	RunOnStart     *bool         `yaml:"run_on_start"`
	MonthlyEnabled bool          `yaml:"monthly_enabled"`
	MonthlySpec    string        `yaml:"monthly_spec"`
	ExitOnFatal    bool          `yaml:"exit_on_fatal"`
}

// ServerConfig defines the optional health/metrics listener.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, pretty
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation. A .env file next to the process, if present,
// is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment variables in data and decodes it into a
// validated Config with defaults applied.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyPortalDefaults(&cfg.Portal)
	applyBrowserDefaults(&cfg.Browser)
	applyCaptchaDefaults(&cfg.Captcha)
	applyEnrichDefaults(&cfg.Enrich)
	applyStoreDefaults(&cfg.Store)
	applyNotificationDefaults(&cfg.Notifications)
	applyScheduleDefaults(&cfg.Schedule)
	applyServerDefaults(&cfg.Server)
	applyLoggingDefaults(&cfg.Logging)
}

func applyPortalDefaults(p *PortalConfig) {
	if p.LoginURL == "" {
		p.LoginURL = "https://www.einvoice.nat.gov.tw/accounts/login/mw"
	}
	if p.SearchURL == "" {
		p.SearchURL = "https://www.einvoice.nat.gov.tw/portal/btc/mobile/btc502w/search"
	}
	if p.APIURL == "" {
		p.APIURL = "https://service-mc.einvoice.nat.gov.tw/btc/cloud/api"
	}
	if p.Origin == "" {
		p.Origin = "https://www.einvoice.nat.gov.tw"
	}
	if p.Timezone == "" {
		p.Timezone = "Asia/Taipei"
	}
	if p.PageSize == 0 {
		p.PageSize = 100
	}
	if p.MaxRelogin == nil {
		maxRelogin := 10
		p.MaxRelogin = &maxRelogin
	}
	if p.CaptchaAttempts == 0 {
		p.CaptchaAttempts = 5
	}
	if p.CaptchaRetryDelay == 0 {
		p.CaptchaRetryDelay = 10 * time.Second
	}
	if p.PreflightDelay == 0 {
		p.PreflightDelay = 1500 * time.Millisecond
	}
	if p.PageDelay == 0 {
		p.PageDelay = 3 * time.Second
	}
	if p.SettleDelay == 0 {
		p.SettleDelay = 3 * time.Second
	}
	if p.ElementTimeout == 0 {
		p.ElementTimeout = 10 * time.Second
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = 30 * time.Second
	}
	applyRateLimitDefaults(&p.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 2.0
	}
	if r.Burst == 0 {
		r.Burst = 1
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 2000
	}
}

func applyBrowserDefaults(b *BrowserConfig) {
	if b.Headless == nil {
		headless := true
		b.Headless = &headless
	}
	if b.UserAgent == "" {
		b.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if b.WindowWidth == 0 {
		b.WindowWidth = 1080
	}
	if b.WindowHeight == 0 {
		b.WindowHeight = 2160
	}
}

func applyCaptchaDefaults(c *CaptchaConfig) {
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
}

func applyEnrichDefaults(e *EnrichConfig) {
	if e.Backend == "" {
		e.Backend = "none"
	}
	if e.OpenAI.Endpoint == "" {
		e.OpenAI.Endpoint = DefaultOpenAIEndpoint
	}
	if e.OpenAI.CategorizeModel == "" {
		e.OpenAI.CategorizeModel = "gpt-5-mini-2025-08-07"
	}
	if e.OpenAI.DescribeModel == "" {
		e.OpenAI.DescribeModel = "gpt-4o-2024-08-06"
	}
	if e.Persona == "" {
		e.Persona = "路邊的可愛高中妹妹"
	}
	if len(e.Categories) == 0 {
		e.Categories = []string{
			"Dining", "Groceries", "Shopping", "Transit", "Entertainment",
			"Bills & Fees", "Gifts", "Beauty", "Work", "Travel",
		}
	}
	if e.Timeout == 0 {
		e.Timeout = 60 * time.Second
	}
}

func applyStoreDefaults(s *StoreConfig) {
	if s.Driver == "" {
		s.Driver = "postgres"
	}
	if s.Database.Port == 0 {
		s.Database.Port = 5432
	}
	if s.Database.SSLMode == "" {
		s.Database.SSLMode = "disable"
	}
	if s.Database.PoolSize == 0 {
		s.Database.PoolSize = 4
	}
	if s.Redis.Prefix == "" {
		s.Redis.Prefix = "einvoice:invoice:"
	}
	if s.SQLite.Path == "" {
		s.SQLite.Path = "einvoice.db"
	}
}

func applyNotificationDefaults(n *NotificationsConfig) {
	if n.Telegram.APIURL == "" {
		n.Telegram.APIURL = "https://api.telegram.org"
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.MinInterval == 0 {
		s.MinInterval = 6000 * time.Second
	}
	if s.MaxInterval == 0 {
		s.MaxInterval = 21600 * time.Second
	}
	if s.RunOnStart == nil {
		runOnStart := true
		s.RunOnStart = &runOnStart
	}
	if s.MonthlySpec == "" {
		s.MonthlySpec = "5 0 1 * *"
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 9090
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Portal.Phone == "" {
		errs = append(errs, fmt.Errorf("portal.phone is required"))
	}
	if cfg.Portal.Password == "" {
		errs = append(errs, fmt.Errorf("portal.password is required"))
	}
	if _, err := cfg.Portal.Location(); err != nil {
		errs = append(errs, fmt.Errorf("portal.timezone %q: %w", cfg.Portal.Timezone, err))
	}
	if cfg.Portal.CaptchaAttempts < 1 {
		errs = append(errs, fmt.Errorf("portal.captcha_attempts must be at least 1"))
	}
	if cfg.Portal.MaxRelogin != nil && *cfg.Portal.MaxRelogin < 0 {
		errs = append(errs, fmt.Errorf("portal.max_relogin must not be negative"))
	}
	if cfg.Captcha.Endpoint == "" {
		errs = append(errs, fmt.Errorf("captcha.endpoint is required"))
	}

	errs = append(errs, validateEnrich(&cfg.Enrich)...)
	errs = append(errs, validateStore(&cfg.Store)...)

	if cfg.Notifications.Telegram.Enabled {
		if cfg.Notifications.Telegram.BotToken == "" {
			errs = append(errs, fmt.Errorf("notifications.telegram.bot_token is required when enabled"))
		}
		if cfg.Notifications.Telegram.ChatID == "" {
			errs = append(errs, fmt.Errorf("notifications.telegram.chat_id is required when enabled"))
		}
	}
	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when enabled"))
	}

	if cfg.Schedule.MaxInterval < cfg.Schedule.MinInterval {
		errs = append(errs, fmt.Errorf(
			"schedule.max_interval (%s) must not be less than schedule.min_interval (%s)",
			cfg.Schedule.MaxInterval, cfg.Schedule.MinInterval,
		))
	}

	return errors.Join(errs...)
}

func validateEnrich(e *EnrichConfig) []error {
	switch e.Backend {
	case "none":
		return nil
	case "openai":
		// An empty key is allowed: self-hosted endpoints often need none, and
		// against the hosted API enrichment is switched off.
		return nil
	case "anthropic":
		if e.Anthropic.Model == "" {
			return []error{fmt.Errorf("enrich.anthropic.model is required when backend is anthropic")}
		}
		return nil
	default:
		return []error{fmt.Errorf(
			"enrich.backend must be one of: none, openai, anthropic (got %q)",
			e.Backend,
		)}
	}
}

func validateStore(s *StoreConfig) []error {
	var errs []error

	switch s.Driver {
	case "postgres":
		if s.Database.Host == "" {
			errs = append(errs, fmt.Errorf("store.database.host is required"))
		}
		if s.Database.Name == "" {
			errs = append(errs, fmt.Errorf("store.database.name is required"))
		}
		if s.Database.User == "" {
			errs = append(errs, fmt.Errorf("store.database.user is required"))
		}
	case "redis":
		if s.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("store.redis.addr is required when driver is redis"))
		}
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf(
			"store.driver must be one of: postgres, redis, sqlite, memory (got %q)",
			s.Driver,
		))
	}

	return errs
}
