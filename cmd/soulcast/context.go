package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"soulcast/internal/api"
	"soulcast/internal/app"
	"soulcast/internal/config"
	"soulcast/internal/logging"
)

// daemonProbeTimeout bounds the reachability check made before each command.
const daemonProbeTimeout = 2 * time.Second

type commandContext struct {
	configFlag  *string
	localFlag   *bool
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, localFlag, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		localFlag:   localFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) daemonClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.APIBaseURL(), cfg.Paths.APIToken)
}

// probeDaemon returns a client when a daemon answers on the configured bind address.
func (c *commandContext) probeDaemon(ctx context.Context, cfg *config.Config) (*api.Client, error) {
	client := c.daemonClient(cfg)
	probeCtx, cancel := context.WithTimeout(ctx, daemonProbeTimeout)
	defer cancel()
	if _, err := client.Status(probeCtx); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, errors.New("daemon rejected the API token; set paths.api_token or SOULCAST_API_TOKEN")
		}
		return nil, nil
	}
	return client, nil
}

// withService runs fn against the daemon when one is reachable, or against
// components assembled in-process otherwise.
func (c *commandContext) withService(cmd *cobra.Command, fn func(service) error) error {
	svc, err := c.openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func (c *commandContext) openService(ctx context.Context) (service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if c.localFlag == nil || !*c.localFlag {
		client, err := c.probeDaemon(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if client != nil {
			return &remoteService{client: client, interval: cfg.PollInterval()}, nil
		}
	}

	logger, err := c.logger(cfg)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return &localService{app: a}, nil
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	level := "warn"
	if c.verboseFlag != nil && *c.verboseFlag {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
