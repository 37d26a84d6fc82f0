package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeTranscoder()
	c.normalizeUpload()
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
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
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "", "sqlite3":
		c.Store.Driver = storeDriverSQLite
	case "postgresql", "pgx":
		c.Store.Driver = storeDriverPostgres
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.Driver == storeDriverSQLite {
		if c.Store.DSN == "" {
			c.Store.DSN = filepath.Join(c.Paths.LogDir, "queue.db")
			return nil
		}
		expanded, err := expandPath(c.Store.DSN)
		if err != nil {
			return fmt.Errorf("store.dsn: %w", err)
		}
		c.Store.DSN = expanded
	}
	return nil
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.FFmpegBinary = strings.TrimSpace(c.Transcoder.FFmpegBinary)
	if c.Transcoder.FFmpegBinary == "" {
		c.Transcoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcoder.FFprobeBinary = strings.TrimSpace(c.Transcoder.FFprobeBinary)
	if c.Transcoder.FFprobeBinary == "" {
		c.Transcoder.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Transcoder.SegmentSeconds <= 0 {
		c.Transcoder.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Transcoder.TimeoutSeconds < 0 {
		c.Transcoder.TimeoutSeconds = 0
	}
	if len(c.Transcoder.Renditions) == 0 {
		c.Transcoder.Renditions = defaultRenditions()
	}
	for i := range c.Transcoder.Renditions {
		r := &c.Transcoder.Renditions[i]
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" && r.Height > 0 {
			r.Name = fmt.Sprintf("%dp", r.Height)
		}
		r.VideoBitrate = strings.ToLower(strings.TrimSpace(r.VideoBitrate))
		r.AudioBitrate = strings.ToLower(strings.TrimSpace(r.AudioBitrate))
		if r.AudioBitrate == "" {
			r.AudioBitrate = defaultAudioBitrate
		}
	}
	sortRenditions(c.Transcoder.Renditions)
}

// sortRenditions orders renditions by ascending height.
func sortRenditions(renditions []Rendition) {
	for i := 1; i < len(renditions); i++ {
		for j := i; j > 0 && renditions[j].Height < renditions[j-1].Height; j-- {
			renditions[j], renditions[j-1] = renditions[j-1], renditions[j]
		}
	}
}

func (c *Config) normalizeUpload() {
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = defaultUploadMaxBytes
	}
	c.Upload.Field = strings.TrimSpace(c.Upload.Field)
	if c.Upload.Field == "" {
		c.Upload.Field = defaultUploadField
	}
	types := make([]string, 0, len(c.Upload.AllowedTypes))
	seen := make(map[string]struct{}, len(c.Upload.AllowedTypes))
	for _, value := range c.Upload.AllowedTypes {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		types = append(types, normalized)
	}
	if len(types) == 0 {
		types = defaultAllowedTypes()
	}
	c.Upload.AllowedTypes = types
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.StatusWriteTimeout <= 0 {
		c.Workflow.StatusWriteTimeout = defaultStatusWriteTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}
