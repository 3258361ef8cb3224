package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration that must stop the process before it starts serving.
var ErrInvalid = errors.New("invalid configuration")

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// MaxTransportFailures is the number of consecutive getUpdates/setWebhook
	// failures after which the update source gives up.
	MaxTransportFailures int `yaml:"max_transport_failures" envconfig:"TELEGRAM_MAX_TRANSPORT_FAILURES"`
}

// WebhookConfig specifies webhook registration settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Secret string `yaml:"secret" envconfig:"WEBHOOK_SECRET"`
}

// HTTPConfig controls the HTTP listener serving health checks and the webhook.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
}

// ReportConfig describes where finished reports go and how they are stamped.
type ReportConfig struct {
	DestinationChat string `yaml:"destination_chat" envconfig:"REPORT_DESTINATION_CHAT"`
	TimeZone        string `yaml:"time_zone" envconfig:"REPORT_TIME_ZONE"`
	DefaultCaption  string `yaml:"default_caption" envconfig:"REPORT_DEFAULT_CAPTION"`
}

// SessionConfig selects the pending report store.
type SessionConfig struct {
	Backend       string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
	TTLMinutes    int    `yaml:"ttl_minutes" envconfig:"SESSION_TTL_MINUTES"`
	KeyPrefix     string `yaml:"key_prefix" envconfig:"SESSION_KEY_PREFIX"`
}

// DatabaseConfig holds Postgres connection settings for the report journal.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// SessionMemory keeps pending reports in process memory.
	SessionMemory = "memory"
	// SessionRedis keeps pending reports in Redis.
	SessionRedis = "redis"
)

const (
	defaultLongPollTimeout      = 10
	defaultMaxTransportFailures = 8
	defaultHTTPListen           = "0.0.0.0"
	defaultTimeZone             = "UTC"
	defaultCaption              = "No remarks"
	defaultSessionTTLMinutes    = 24 * 60
	defaultSessionKeyPrefix     = "reportbot:pending:"
)

var secretRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// Config aggregates the process configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	HTTP     HTTPConfig     `yaml:"http"`
	Report   ReportConfig   `yaml:"report"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CoreConfig satisfies the runner's config carrier contract.
func (c *Config) CoreConfig() *Config { return c }

// Load reads configuration from a YAML file and environment variables.
// A missing file is not an error so that env-only deployments work.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return invalid("nil config")
	}

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		return invalid("telegram token is required (BOT_TOKEN)")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	if cfg.HTTP.Listen = strings.TrimSpace(cfg.HTTP.Listen); cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = defaultHTTPListen
	}
	if cfg.HTTP.Port < 0 {
		return invalid("http.port must be >= 0")
	}
	switch rm {
	case RunModeWebhook:
		cfg.Webhook.URL = strings.TrimRight(strings.TrimSpace(cfg.Webhook.URL), "/")
		if cfg.Webhook.URL == "" {
			return invalid("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if !strings.HasPrefix(cfg.Webhook.URL, "https://") {
			return invalid("webhook.url must be an https URL")
		}
		if !secretRe.MatchString(cfg.Webhook.Secret) {
			return invalid("webhook.secret is required and may contain only letters, digits, '_' and '-'")
		}
		if cfg.HTTP.Port == 0 {
			return invalid("http.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return invalid("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return invalid(fmt.Sprintf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode))
	}
	cfg.Telegram.RunMode = rm
	if cfg.Telegram.LongPollTimeoutSeconds == 0 {
		cfg.Telegram.LongPollTimeoutSeconds = defaultLongPollTimeout
	}
	if cfg.Telegram.MaxTransportFailures <= 0 {
		cfg.Telegram.MaxTransportFailures = defaultMaxTransportFailures
	}

	if err := normalizeReport(&cfg.Report); err != nil {
		return err
	}
	if err := normalizeSession(&cfg.Session); err != nil {
		return err
	}
	normalizeDatabase(&cfg.Database)
	return nil
}

func normalizeDatabase(d *DatabaseConfig) {
	if strings.TrimSpace(d.Host) == "" {
		return
	}
	if d.Port == "" {
		d.Port = "5432"
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.MaxConnections <= 0 {
		d.MaxConnections = 4
	}
	if d.MigrationsDir == "" {
		d.MigrationsDir = "migrations"
	}
}

func normalizeReport(r *ReportConfig) error {
	r.DestinationChat = strings.TrimSpace(r.DestinationChat)
	if r.DestinationChat == "" {
		return invalid("report.destination_chat is required (REPORT_DESTINATION_CHAT)")
	}
	if !strings.HasPrefix(r.DestinationChat, "@") {
		if _, err := strconv.ParseInt(r.DestinationChat, 10, 64); err != nil {
			return invalid(fmt.Sprintf("report.destination_chat %q must be a numeric chat id or @channel", r.DestinationChat))
		}
	}
	if r.TimeZone = strings.TrimSpace(r.TimeZone); r.TimeZone == "" {
		r.TimeZone = defaultTimeZone
	}
	if _, err := time.LoadLocation(r.TimeZone); err != nil {
		return invalid(fmt.Sprintf("report.time_zone %q: %v", r.TimeZone, err))
	}
	if strings.TrimSpace(r.DefaultCaption) == "" {
		r.DefaultCaption = defaultCaption
	}
	return nil
}

func normalizeSession(s *SessionConfig) error {
	backend := strings.ToLower(strings.TrimSpace(s.Backend))
	if backend == "" {
		backend = SessionMemory
	}
	switch backend {
	case SessionMemory:
	case SessionRedis:
		if strings.TrimSpace(s.RedisAddr) == "" {
			return invalid("session.redis_addr is required when session.backend is 'redis'")
		}
		if s.TTLMinutes < 0 {
			return invalid("session.ttl_minutes must be >= 0")
		}
		if s.TTLMinutes == 0 {
			s.TTLMinutes = defaultSessionTTLMinutes
		}
	default:
		return invalid(fmt.Sprintf("invalid session.backend %q; allowed: memory, redis", s.Backend))
	}
	s.Backend = backend
	if strings.TrimSpace(s.KeyPrefix) == "" {
		s.KeyPrefix = defaultSessionKeyPrefix
	}
	return nil
}

// Location returns the configured report time zone. Normalize has already validated it.
func (r ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WebhookPath returns the path Telegram posts updates to.
func (w WebhookConfig) WebhookPath() string {
	return "/webhook/" + w.Secret
}

// WebhookURL returns the public URL registered with setWebhook.
func (w WebhookConfig) WebhookURL() string {
	return w.URL + w.WebhookPath()
}

// SessionTTL returns the Redis expiry for pending reports.
func (s SessionConfig) SessionTTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// JournalEnabled reports whether the Postgres report journal is configured.
func (c *Config) JournalEnabled() bool {
	return strings.TrimSpace(c.Database.Host) != ""
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}
