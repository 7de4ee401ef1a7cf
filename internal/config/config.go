package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Journal  JournalConfig  `mapstructure:"journal"`
	Insights InsightsConfig `mapstructure:"insights"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Stream   StreamConfig   `mapstructure:"stream"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	File              string `mapstructure:"file"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DailyStats  string `mapstructure:"daily_stats"`
	ReviewCheck string `mapstructure:"review_check"`
}

// JournalConfig tunes entry capture behavior.
type JournalConfig struct {
	// DefaultCurrency is the fallback when no prior risk entry carries one.
	DefaultCurrency string `mapstructure:"default_currency"`
	// CurrencyScanLimit bounds the "last used currency" lookup.
	CurrencyScanLimit int  `mapstructure:"currency_scan_limit"`
	HashtagTags       bool `mapstructure:"hashtag_tags"`
	SuggestCategory   bool `mapstructure:"suggest_category"`
}

type InsightsConfig struct {
	WindowDays         int `mapstructure:"window_days"`
	DriftProximityDays int `mapstructure:"drift_proximity_days"`
	ScanLimit          int `mapstructure:"scan_limit"`
}

type AuthConfig struct {
	// Token guards /api routes when non-empty; health endpoints stay open.
	Token string `mapstructure:"token"`
}

type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Token      string `mapstructure:"token"`
	Agent      string `mapstructure:"agent"`
}

type StreamConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Buffer  int  `mapstructure:"buffer"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:data/journal.db?_busy_timeout=5000&_journal_mode=WAL")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.daily_stats", "@every 6h")
	v.SetDefault("cron.review_check", "@every 24h")
	v.SetDefault("journal.default_currency", "USD")
	v.SetDefault("journal.currency_scan_limit", 10)
	v.SetDefault("journal.hashtag_tags", true)
	v.SetDefault("journal.suggest_category", true)
	v.SetDefault("insights.window_days", 90)
	v.SetDefault("insights.drift_proximity_days", 30)
	v.SetDefault("insights.scan_limit", 1000)
	v.SetDefault("auth.token", "")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.webhook_url", "")
	v.SetDefault("audit.token", "")
	v.SetDefault("audit.agent", "riskjournal")
	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.buffer", 64)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
