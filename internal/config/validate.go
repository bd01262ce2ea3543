package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validatePage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return errors.New("store.dsn must be set for the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or set EMBYSCOUT_STORE_DSN)")
		}
	default:
		return fmt.Errorf("store.driver: unsupported value %q (use sqlite or postgres)", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if _, err := url.ParseRequestURI(c.TMDB.BaseURL); err != nil {
		return fmt.Errorf("tmdb.base_url: %w", err)
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"http.search_timeout":           c.HTTP.SearchTimeout,
		"http.check_timeout":            c.HTTP.CheckTimeout,
		"http.info_timeout":             c.HTTP.InfoTimeout,
		"http.probe_timeout":            c.HTTP.ProbeTimeout,
		"page.fetch_timeout":            c.Page.FetchTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateScan() error {
	if c.Scan.DelaySeconds < 0 {
		return errors.New("scan.delay_seconds must be >= 0")
	}
	if c.Scan.SettleSeconds < 0 {
		return errors.New("scan.settle_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validatePage() error {
	if c.Page.WatchInterval <= 0 {
		return errors.New("page.watch_interval must be positive (seconds)")
	}
	if c.Page.MaxRequestsPerMinute <= 0 {
		return errors.New("page.max_requests_per_minute must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
