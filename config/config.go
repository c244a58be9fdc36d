// Package config loads service configuration: defaults, then an optional
// YAML file, then environment variable overrides.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Provider kinds.
const (
	ProviderBinance = "binance"
	ProviderRedis   = "redis"
	ProviderSQLite  = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	// Market data
	Provider     string        `yaml:"provider"`
	BinanceURL   string        `yaml:"binance_url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	BreakerFails int           `yaml:"breaker_failures"`
	BreakerReset time.Duration `yaml:"breaker_reset"`
	FilterTTL    time.Duration `yaml:"filter_ttl"`
	CacheSize    int           `yaml:"cache_size"`
	BookDepth    int           `yaml:"book_depth"`

	// Infrastructure
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	SQLitePath    string `yaml:"sqlite_path"`
	HTTPAddr      string `yaml:"http_addr"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// Gateway
	TOTPSecret     string        `yaml:"totp_secret"`
	WSPushInterval time.Duration `yaml:"ws_push_interval"`

	// Scheduler: symbols kept warm and published on WarmCron.
	WatchSymbols []string `yaml:"watch_symbols"`
	WarmCron     string   `yaml:"warm_cron"`
	Publish      bool     `yaml:"publish"`

	// Notification sinks for scheduled reports; empty disables.
	WebhookURL     string `yaml:"webhook_url"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:       ProviderBinance,
		BinanceURL:     "https://fapi.binance.com",
		FetchTimeout:   10 * time.Second,
		BreakerFails:   5,
		BreakerReset:   30 * time.Second,
		FilterTTL:      time.Hour,
		CacheSize:      512,
		BookDepth:      20,
		RedisAddr:      "localhost:6379",
		SQLitePath:     "data/candles.db",
		HTTPAddr:       ":8090",
		LogLevel:       "info",
		WSPushInterval: 30 * time.Second,
		WarmCron:       "@every 1m",
	}
}

// Load reads config from a YAML file (if path is non-empty and exists),
// then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderBinance, ProviderRedis, ProviderSQLite:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: fetch_timeout must be positive")
	}
	if c.BookDepth <= 0 {
		return fmt.Errorf("config: book_depth must be positive")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("config: telegram_token and telegram_chat_id must be set together")
	}
	return nil
}

func applyEnv(c *Config) {
	c.Provider = getEnv("PROVIDER", c.Provider)
	c.BinanceURL = getEnv("BINANCE_URL", c.BinanceURL)
	c.FetchTimeout = getDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.BreakerFails = getInt("BREAKER_FAILURES", c.BreakerFails)
	c.BreakerReset = getDuration("BREAKER_RESET", c.BreakerReset)
	c.FilterTTL = getDuration("FILTER_TTL", c.FilterTTL)
	c.CacheSize = getInt("CACHE_SIZE", c.CacheSize)
	c.BookDepth = getInt("BOOK_DEPTH", c.BookDepth)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getInt("REDIS_DB", c.RedisDB)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)

	c.TOTPSecret = getEnv("TOTP_SECRET", c.TOTPSecret)
	c.WSPushInterval = getDuration("WS_PUSH_INTERVAL", c.WSPushInterval)

	if v := os.Getenv("WATCH_SYMBOLS"); v != "" {
		c.WatchSymbols = ParseSymbols(v)
	}
	c.WarmCron = getEnv("WARM_CRON", c.WarmCron)
	if v := os.Getenv("PUBLISH"); v != "" {
		c.Publish, _ = strconv.ParseBool(v)
	}
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.TelegramToken = getEnv("TELEGRAM_TOKEN", c.TelegramToken)
	c.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.TelegramChatID)
}

// ParseSymbols splits a comma-separated list, upper-casing and dropping blanks.
func ParseSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Watch reloads path whenever it is written and calls fn with the new
// config. Invalid files are logged and skipped. Blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory so editors that replace the file are still seen.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				slog.Warn("config reload skipped", "component", "config", "path", path, "error", err)
				continue
			}
			slog.Info("config reloaded", "component", "config", "path", path)
			fn(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "component", "config", "error", err)
		}
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("skipping invalid int env var", "component", "config", "key", key, "value", v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("skipping invalid duration env var", "component", "config", "key", key, "value", v)
		return fallback
	}
	return d
}
