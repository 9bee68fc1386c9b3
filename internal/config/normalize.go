package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeQuota()
	c.normalizeTracking()
	c.normalizePlayback()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SOULCAST_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.APIKey = strings.TrimSpace(c.Backend.APIKey)
	if c.Backend.APIKey == "" {
		if value, ok := os.LookupEnv("SOULCAST_API_KEY"); ok {
			c.Backend.APIKey = strings.TrimSpace(value)
		}
	}
	c.Backend.BaseURL = strings.TrimSpace(c.Backend.BaseURL)
	if c.Backend.BaseURL == "" {
		if value, ok := os.LookupEnv("SOULCAST_BASE_URL"); ok {
			c.Backend.BaseURL = strings.TrimSpace(value)
		}
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultBackendTimeout
	}
	if c.Backend.RequestsPerSecond <= 0 {
		c.Backend.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Backend.Burst <= 0 {
		c.Backend.Burst = defaultBurst
	}
	if c.Backend.RetryAttempts <= 0 {
		c.Backend.RetryAttempts = defaultRetryAttempts
	}
}

func (c *Config) normalizeQuota() {
	if c.Quota.MonthlyLimit <= 0 {
		c.Quota.MonthlyLimit = defaultMonthlyLimit
	}
}

func (c *Config) normalizeTracking() {
	if c.Tracking.PollIntervalSeconds <= 0 {
		c.Tracking.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Tracking.BackoffMaxSeconds < 0 {
		c.Tracking.BackoffMaxSeconds = 0
	}
}

func (c *Config) normalizePlayback() {
	cmd := make([]string, 0, len(c.Playback.PlayerCommand))
	for _, part := range c.Playback.PlayerCommand {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cmd = append(cmd, trimmed)
		}
	}
	if len(cmd) == 0 {
		cmd = append(cmd, defaultPlayerCommand...)
	}
	c.Playback.PlayerCommand = cmd
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
