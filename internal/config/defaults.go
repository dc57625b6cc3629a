package config

// Backend kinds accepted by store.backend.
const (
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

const (
	defaultConfigPath           = "~/.config/distq/config.toml"
	defaultBackend              = BackendSQLite
	defaultDataDir              = "~/.local/share/distq"
	defaultFsync                = "always"
	defaultBusyTimeoutMS        = 5000
	defaultRootPath             = "/var/sling/distribution/queues"
	defaultTimeZone             = "Local"
	defaultPruneIntervalSeconds = 300
	defaultMetricsBind          = "127.0.0.1:9464"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Store: Store{
			Backend:       defaultBackend,
			DataDir:       defaultDataDir,
			Fsync:         defaultFsync,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Queue: Queue{
			RootPath: defaultRootPath,
			TimeZone: defaultTimeZone,
		},
		Prune: Prune{
			IntervalSeconds: defaultPruneIntervalSeconds,
		},
		Metrics: Metrics{
			Enabled: false,
			Bind:    defaultMetricsBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
