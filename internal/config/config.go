package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Store selects the key-value backend that holds the server list, the site
// list, and the panel position.
type Store struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// HTTP contains per-call timeouts (seconds) for media-server requests.
type HTTP struct {
	SearchTimeout int    `toml:"search_timeout"`
	CheckTimeout  int    `toml:"check_timeout"`
	InfoTimeout   int    `toml:"info_timeout"`
	ProbeTimeout  int    `toml:"probe_timeout"`
	UserAgent     string `toml:"user_agent"`
}

// Scan contains library rescan countdown timing.
type Scan struct {
	DelaySeconds  int    `toml:"delay_seconds"`
	SettleSeconds int    `toml:"settle_seconds"`
	DefaultPath   string `toml:"default_path"`
}

// Page contains configuration for scanning and watching host web pages.
type Page struct {
	WatchInterval        int    `toml:"watch_interval"`
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"`
	FetchTimeout         int    `toml:"fetch_timeout"`
	HDHiveBaseURL        string `toml:"hdhive_base_url"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	ScanCompleted  bool   `toml:"scan_completed"`
	ScanFailed     bool   `toml:"scan_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for embyscout.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and daemon API bind address
//   - Store: key-value backend (sqlite or postgres)
//   - TMDB: metadata lookups used for page title links
//   - HTTP: media-server request timeouts
//   - Scan: library rescan countdown timing
//   - Page: host page scanning and watching
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	TMDB          TMDB          `toml:"tmdb"`
	HTTP          HTTP          `toml:"http"`
	Scan          Scan          `toml:"scan"`
	Page          Page          `toml:"page"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env files next to the config file and in the working
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) error {
	candidates := []string{".env"}
	if configDir != "" {
		candidates = append([]string{filepath.Join(configDir, ".env")}, candidates...)
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load env file %s: %w", abs, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("embyscout.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "embyscoutd.lock")
}

// SearchTimeout bounds one keyword search against one server.
func (c *Config) SearchTimeout() time.Duration {
	return seconds(c.HTTP.SearchTimeout)
}

// CheckTimeout bounds one in-library check.
func (c *Config) CheckTimeout() time.Duration {
	return seconds(c.HTTP.CheckTimeout)
}

// InfoTimeout bounds server identifier lookups.
func (c *Config) InfoTimeout() time.Duration {
	return seconds(c.HTTP.InfoTimeout)
}

// ProbeTimeout bounds reachability probes.
func (c *Config) ProbeTimeout() time.Duration {
	return seconds(c.HTTP.ProbeTimeout)
}

// ScanDelay is the countdown before a library refresh is requested.
func (c *Config) ScanDelay() time.Duration {
	return seconds(c.Scan.DelaySeconds)
}

// ScanSettle is the countdown after a refresh before results are re-read.
func (c *Config) ScanSettle() time.Duration {
	return seconds(c.Scan.SettleSeconds)
}

// WatchInterval is the page watcher poll period.
func (c *Config) WatchInterval() time.Duration {
	return seconds(c.Page.WatchInterval)
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
