package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderBinance {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderBinance)
	}
	if cfg.BookDepth != 20 {
		t.Errorf("BookDepth = %d, want 20", cfg.BookDepth)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want 10s", cfg.FetchTimeout)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("provider: sqlite\nsqlite_path: /tmp/x.db\nfetch_timeout: 3s\nwatch_symbols: [BTCUSDT, ETHUSDT]\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SQLITE_PATH", "/tmp/override.db")
	t.Setenv("BOOK_DEPTH", "50")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderSQLite {
		t.Errorf("Provider = %q, want sqlite", cfg.Provider)
	}
	if cfg.SQLitePath != "/tmp/override.db" {
		t.Errorf("env did not override SQLitePath: %q", cfg.SQLitePath)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %v, want 3s", cfg.FetchTimeout)
	}
	if cfg.BookDepth != 50 {
		t.Errorf("BookDepth = %d, want 50", cfg.BookDepth)
	}
	if len(cfg.WatchSymbols) != 2 || cfg.WatchSymbols[1] != "ETHUSDT" {
		t.Errorf("WatchSymbols = %v", cfg.WatchSymbols)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("PROVIDER", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoad_TelegramNeedsChat(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	if _, err := Load(""); err == nil {
		t.Fatal("token without chat id should be rejected")
	}
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelegramChatID != "42" {
		t.Errorf("TelegramChatID = %q", cfg.TelegramChatID)
	}
}

func TestLoad_BadEnvFallsBack(t *testing.T) {
	t.Setenv("CACHE_SIZE", "lots")
	t.Setenv("FETCH_TIMEOUT", "soon")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheSize != 512 || cfg.FetchTimeout != 10*time.Second {
		t.Errorf("bad env should keep defaults, got %d / %v", cfg.CacheSize, cfg.FetchTimeout)
	}
}

func TestParseSymbols(t *testing.T) {
	got := ParseSymbols(" btcusdt, ,ethusdt ,")
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Errorf("ParseSymbols = %v", got)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			if c.LogLevel != "debug" {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
