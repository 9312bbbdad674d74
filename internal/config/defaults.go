package config

const (
	defaultConfigPath         = "~/.config/mediaproc/config.toml"
	defaultStorageDir         = "~/.local/share/mediaproc/storage"
	defaultLogDir             = "~/.local/share/mediaproc/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultFFmpeg             = "ffmpeg"
	defaultFFprobe            = "ffprobe"
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultSyncWorkers        = 2
	defaultAsyncWorkers       = 1
	defaultTimeBudgetScale    = 1.0
	defaultKillGraceSeconds   = 5
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
		},
		Tools: defaultTools(),
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			SyncWorkers:        defaultSyncWorkers,
			AsyncWorkers:       defaultAsyncWorkers,
			EnforceTimeBudget:  true,
			TimeBudgetScale:    defaultTimeBudgetScale,
			KillGraceSeconds:   defaultKillGraceSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultTools() Tools {
	return Tools{
		FFmpeg:   defaultFFmpeg,
		FFprobe:  defaultFFprobe,
		Copy:     "cp",
		Convert:  "convert",
		OptiPNG:  "optipng",
		JPEGTran: "jpegtran",
		Tidy:     "tidy",
		XCF2PNG:  "xcf2png",
		OTFInfo:  "otfinfo",
	}
}
