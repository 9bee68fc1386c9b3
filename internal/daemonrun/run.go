package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"soulcast/internal/app"
	"soulcast/internal/config"
	"soulcast/internal/daemon"
	"soulcast/internal/deps"
	"soulcast/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the soulcast daemon and blocks until cmdCtx ends or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr", logging.FilePath(cfg)},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger = logger.With(logging.String("session_id", sessionID))

	logDependencySnapshot(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	a, err := app.New(signalCtx, cfg, app.Options{Logger: logger})
	if err != nil {
		logger.Error("assemble components", logging.Error(err))
		return err
	}

	d, err := daemon.New(a)
	if err != nil {
		_ = a.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another soulcastd and that paths.api_bind is free"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("soulcast daemon shutting down")
	return nil
}

// ReadPID returns the PID recorded by a running daemon, or zero when none is recorded.
func ReadPID(cfg *config.Config) int {
	data, err := os.ReadFile(cfg.PIDPath())
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("backend_url", cfg.Backend.BaseURL),
		logging.Bool("api_key_present", cfg.Backend.APIKey != ""),
		logging.Bool("api_token_present", cfg.Paths.APIToken != ""),
		logging.Int("monthly_limit", cfg.Quota.MonthlyLimit),
	)
	for _, status := range deps.Check(cfg) {
		attrs := []logging.Attr{
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.Bool("available", status.Available),
		}
		if status.Available {
			logger.Debug("dependency available", logging.Args(attrs...)...)
			continue
		}
		attrs = append(attrs,
			logging.String("detail", status.Detail),
			logging.String(logging.FieldImpact, status.Description+" is unavailable"),
		)
		logging.WarnWithContext(logger, "dependency missing", "dependency_missing", attrs...)
	}
}
