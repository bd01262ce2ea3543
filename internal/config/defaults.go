package config

const (
	defaultConfigPath           = "~/.config/embyscout/config.toml"
	defaultDataDir              = "~/.local/share/embyscout"
	defaultLogDir               = "~/.local/share/embyscout/logs"
	defaultAPIBind              = "127.0.0.1:7597"
	defaultStoreDriver          = "sqlite"
	defaultStoreFile            = "embyscout.db"
	defaultTMDBBaseURL          = "https://api.themoviedb.org/3"
	defaultTMDBLanguage         = "zh-CN"
	defaultSearchTimeout        = 20
	defaultCheckTimeout         = 15
	defaultInfoTimeout          = 15
	defaultProbeTimeout         = 10
	defaultUserAgent            = "embyscout/0.1"
	defaultScanDelaySeconds     = 60
	defaultScanSettleSeconds    = 10
	defaultScanPath             = "/"
	defaultWatchInterval        = 30
	defaultMaxRequestsPerMinute = 6
	defaultPageFetchTimeout     = 20
	defaultHDHiveBaseURL        = "https://hdhive.com"
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		HTTP: HTTP{
			SearchTimeout: defaultSearchTimeout,
			CheckTimeout:  defaultCheckTimeout,
			InfoTimeout:   defaultInfoTimeout,
			ProbeTimeout:  defaultProbeTimeout,
			UserAgent:     defaultUserAgent,
		},
		Scan: Scan{
			DelaySeconds:  defaultScanDelaySeconds,
			SettleSeconds: defaultScanSettleSeconds,
			DefaultPath:   defaultScanPath,
		},
		Page: Page{
			WatchInterval:        defaultWatchInterval,
			MaxRequestsPerMinute: defaultMaxRequestsPerMinute,
			FetchTimeout:         defaultPageFetchTimeout,
			HDHiveBaseURL:        defaultHDHiveBaseURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			ScanCompleted:  true,
			ScanFailed:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
