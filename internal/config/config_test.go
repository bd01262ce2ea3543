package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"embyscout/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TMDB_API_KEY", "EMBYSCOUT_API_TOKEN", "EMBYSCOUT_STORE_DSN", "EMBYSCOUT_STORE_DRIVER"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigUsesEnvTMDBKeyAndExpandsPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("TMDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "embyscout")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7597" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("unexpected store driver: %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != filepath.Join(wantData, "embyscout.db") {
		t.Fatalf("unexpected store dsn: %q", cfg.Store.DSN)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != config.Default().TMDB.BaseURL {
		t.Fatalf("unexpected TMDB base url: %q", cfg.TMDB.BaseURL)
	}
	if cfg.SearchTimeout() != 20*time.Second {
		t.Fatalf("unexpected search timeout: %v", cfg.SearchTimeout())
	}
	if cfg.CheckTimeout() != 15*time.Second || cfg.InfoTimeout() != 15*time.Second {
		t.Fatalf("unexpected check/info timeouts: %v %v", cfg.CheckTimeout(), cfg.InfoTimeout())
	}
	if cfg.ProbeTimeout() != 10*time.Second {
		t.Fatalf("unexpected probe timeout: %v", cfg.ProbeTimeout())
	}
	if cfg.ScanDelay() != time.Minute || cfg.ScanSettle() != 10*time.Second {
		t.Fatalf("unexpected scan timing: %v %v", cfg.ScanDelay(), cfg.ScanSettle())
	}
	if cfg.Scan.DefaultPath != "/" {
		t.Fatalf("unexpected default scan path: %q", cfg.Scan.DefaultPath)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.LockPath() != filepath.Join(wantData, "embyscoutd.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "~/scout"
api_bind = "0.0.0.0:9000"

[tmdb]
api_key = "file-key"
base_url = "https://tmdb.example/3/"

[http]
search_timeout = 5

[scan]
delay_seconds = 0
settle_seconds = 2

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "scout") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.TMDB.APIKey != "file-key" {
		t.Fatalf("unexpected TMDB key: %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != "https://tmdb.example/3" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.TMDB.BaseURL)
	}
	if cfg.SearchTimeout() != 5*time.Second {
		t.Fatalf("unexpected search timeout: %v", cfg.SearchTimeout())
	}
	if cfg.ScanDelay() != 0 {
		t.Fatalf("expected zero scan delay, got %v", cfg.ScanDelay())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadEnvOverridesFileValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TMDB_API_KEY", "env-key")
	t.Setenv("EMBYSCOUT_API_TOKEN", "env-token")
	t.Setenv("EMBYSCOUT_STORE_DRIVER", "postgres")
	t.Setenv("EMBYSCOUT_STORE_DSN", "postgres://scout@localhost/scout")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[tmdb]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "env-key" {
		t.Fatalf("expected env TMDB key, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Fatalf("expected env api token, got %q", cfg.Paths.APIToken)
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.DSN != "postgres://scout@localhost/scout" {
		t.Fatalf("unexpected store: %+v", cfg.Store)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("TMDB_API_KEY")
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TMDB_API_KEY=dotenv-key\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TMDB_API_KEY") })

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "dotenv-key" {
		t.Fatalf("expected key from .env, got %q", cfg.TMDB.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"postgres without dsn", func(c *config.Config) { c.Store.Driver = "postgres"; c.Store.DSN = "" }, "store.dsn"},
		{"zero search timeout", func(c *config.Config) { c.HTTP.SearchTimeout = 0 }, "http.search_timeout"},
		{"negative delay", func(c *config.Config) { c.Scan.DelaySeconds = -1 }, "scan.delay_seconds"},
		{"zero watch interval", func(c *config.Config) { c.Page.WatchInterval = 0 }, "page.watch_interval"},
		{"zero rate", func(c *config.Config) { c.Page.MaxRequestsPerMinute = 0 }, "page.max_requests_per_minute"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.DSN = "/tmp/embyscout.db"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Scan.DelaySeconds != 60 || cfg.Scan.SettleSeconds != 10 {
		t.Fatalf("unexpected sample scan timing: %+v", cfg.Scan)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("unexpected sample driver: %q", cfg.Store.Driver)
	}
}
