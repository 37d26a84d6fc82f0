package config

const (
	defaultConfigPath              = "~/.config/hlsforge/config.toml"
	defaultUploadDir               = "~/.local/share/hlsforge/uploads"
	defaultOutputDir               = "~/.local/share/hlsforge/video-hls"
	defaultLogDir                  = "~/.local/share/hlsforge/logs"
	defaultAPIBind                 = "127.0.0.1:4000"
	defaultStoreDriver             = "sqlite"
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultSegmentSeconds          = 6
	defaultUploadMaxBytes          = 50 * 1024 * 1024
	defaultUploadField             = "video"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultHeartbeatInterval       = 15
	defaultStatusWriteTimeout      = 10
	defaultNotifyRequestTimeout    = 10
	storeDriverSQLite              = "sqlite"
	storeDriverPostgres            = "postgres"
	defaultAudioBitrate            = "128k"
	minSegmentSeconds              = 1
	maxRenditionHeight             = 4320
	defaultRenditionsMinimumHeight = 144
)

// Store driver names accepted in [store].driver.
const (
	DriverSQLite   = storeDriverSQLite
	DriverPostgres = storeDriverPostgres
)

func defaultRenditions() []Rendition {
	return []Rendition{
		{Name: "360p", Height: 360, VideoBitrate: "800k", AudioBitrate: "96k"},
		{Name: "720p", Height: 720, VideoBitrate: "2800k", AudioBitrate: defaultAudioBitrate},
		{Name: "1080p", Height: 1080, VideoBitrate: "5000k", AudioBitrate: defaultAudioBitrate},
	}
}

func defaultAllowedTypes() []string {
	return []string{"video/mp4", "video/quicktime"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Transcoder: Transcoder{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			SegmentSeconds: defaultSegmentSeconds,
			Renditions:     defaultRenditions(),
		},
		Upload: Upload{
			MaxBytes:     defaultUploadMaxBytes,
			AllowedTypes: defaultAllowedTypes(),
			Field:        defaultUploadField,
		},
		Workflow: Workflow{
			HeartbeatInterval:  defaultHeartbeatInterval,
			StatusWriteTimeout: defaultStatusWriteTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobSucceeded:   true,
			JobFailed:      true,
			QueueDrained:   false,
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}
