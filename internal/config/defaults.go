package config

const (
	defaultConfigPath            = "~/.config/newsreel/config.toml"
	defaultRunDir                = "~/.local/share/newsreel/runs"
	defaultLogDir                = "~/.local/share/newsreel/logs"
	defaultMetricsDir            = "~/.local/share/newsreel/metrics"
	defaultStateBackend          = StateBackendFile
	defaultSQLiteFileName        = "runs.db"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultNotifyRequestTimeout  = 10
	defaultProviderTimeoutSecond = 1800
)

const (
	// StateBackendFile stores one JSON checkpoint per run directory.
	StateBackendFile = "file"
	// StateBackendSQLite stores checkpoints as rows in a SQLite database.
	StateBackendSQLite = "sqlite"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RunDir: defaultRunDir,
			LogDir: defaultLogDir,
		},
		State: State{
			Backend: defaultStateBackend,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			OnSuccess:      true,
			OnFailure:      true,
		},
		Metrics: Metrics{
			TextfileDir: defaultMetricsDir,
		},
	}
}
