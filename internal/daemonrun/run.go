package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"embyscout/internal/app"
	"embyscout/internal/config"
	"embyscout/internal/daemon"
	"embyscout/internal/daemonctl"
	"embyscout/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// Bind overrides paths.api_bind when set.
	Bind string
}

// Run starts the embyscout daemon and blocks until the context ends or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if bind := strings.TrimSpace(opts.Bind); bind != "" {
		cfg.Paths.APIBind = bind
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a, err := app.Build(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("build application", logging.Error(err))
		return err
	}
	defer a.Close()

	logDependencySnapshot(signalCtx, logger, a)

	d, err := daemon.New(a, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	// Written only once the lock is held so a losing instance never
	// clobbers the running daemon's pid file.
	pidPath := daemonctl.PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("embyscout daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, a *app.App) {
	servers, err := a.Registry.Servers(ctx)
	if err != nil {
		logger.Warn("read server list", logging.Error(err))
	}
	sites, err := a.Registry.Sites(ctx)
	if err != nil {
		logger.Warn("read site list", logging.Error(err))
	}
	storeErr := a.Store.Ping(ctx)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("store_driver", a.Store.Driver()),
		logging.Bool("store_reachable", storeErr == nil),
		logging.Int("servers", len(servers)),
		logging.Int("sites", len(sites)),
		logging.Bool("tmdb_key_present", a.TMDB != nil),
		logging.Bool("ntfy_enabled", strings.TrimSpace(a.Config.Notifications.NtfyTopic) != ""),
		logging.Bool("api_token_set", strings.TrimSpace(a.Config.Paths.APIToken) != ""),
	)
}
