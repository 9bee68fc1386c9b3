package config

const (
	defaultConfigPath          = "~/.config/soulcast/config.toml"
	defaultStateDir            = "~/.local/share/soulcast"
	defaultLogDir              = "~/.local/share/soulcast/logs"
	defaultAPIBind             = "127.0.0.1:7489"
	defaultBackendTimeout      = 30
	defaultRequestsPerSecond   = 2.0
	defaultBurst               = 4
	defaultRetryAttempts       = 3
	defaultMonthlyLimit        = 45000
	defaultPollIntervalSeconds = 5
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultPlayerCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Backend: Backend{
			TimeoutSeconds:    defaultBackendTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
			RetryAttempts:     defaultRetryAttempts,
		},
		Quota: Quota{
			MonthlyLimit: defaultMonthlyLimit,
		},
		Tracking: Tracking{
			PollIntervalSeconds: defaultPollIntervalSeconds,
		},
		Playback: Playback{
			PlayerCommand: append([]string(nil), defaultPlayerCommand...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
