package config

// Store backends and transcode engines selectable in configuration.
const (
	BackendRclone = "rclone"
	BackendLocal  = "local"

	EngineFFmpeg = "ffmpeg"
	EngineDrapto = "drapto"
)

const (
	defaultStagingDir       = "~/.local/share/baler/staging"
	defaultArchiveDir       = "~/archive"
	defaultLogDir           = "~/.local/share/baler/logs"
	defaultStoreBackend     = BackendRclone
	defaultTransferTimeout  = 3600
	defaultTranscodeEngine  = EngineFFmpeg
	defaultVideoCodec       = "libsvtav1"
	defaultVideoPreset      = "6"
	defaultVideoQuality     = 27
	defaultAudioCodec       = "libopus"
	defaultAudioBitrate     = "128k"
	defaultTranscodeTimeout = 7200
	defaultPollIntervalMS   = 500
	defaultMaxRetries       = 3
	defaultMinFreeGiB       = 10
	defaultDurationTol      = 2.0
	defaultNtfyTimeout      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60

	maxTranscodeWorkers = 8
)

func defaultExtensions() []string {
	return []string{".mkv", ".mp4", ".mov", ".avi", ".m2ts", ".ts"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			ArchiveDir: defaultArchiveDir,
			LogDir:     defaultLogDir,
		},
		Store: Store{
			Backend:         defaultStoreBackend,
			Extensions:      defaultExtensions(),
			TransferTimeout: defaultTransferTimeout,
		},
		Transcode: Transcode{
			Engine:       defaultTranscodeEngine,
			VideoCodec:   defaultVideoCodec,
			Preset:       defaultVideoPreset,
			Quality:      defaultVideoQuality,
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
			Timeout:      defaultTranscodeTimeout,
		},
		Workflow: Workflow{
			PollIntervalMS: defaultPollIntervalMS,
			MaxRetries:     defaultMaxRetries,
			MinFreeGiB:     defaultMinFreeGiB,
		},
		Validation: Validation{
			VerifyTranscodes:         true,
			DurationToleranceSeconds: defaultDurationTol,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Discovery:      true,
			ItemCompleted:  true,
			RunCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
