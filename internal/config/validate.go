package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var bitratePattern = regexp.MustCompile(`^[0-9]+[km]?$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateTranscoder(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == c.Paths.OutputDir {
		return errors.New("paths.upload_dir and paths.output_dir must differ")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case storeDriverSQLite:
		return nil
	case storeDriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set when store.driver is postgres (or set %s)", EnvStoreDSN)
		}
		if _, err := url.Parse(c.Store.DSN); err != nil {
			return fmt.Errorf("store.dsn: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (use sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateTranscoder() error {
	if c.Transcoder.SegmentSeconds < minSegmentSeconds {
		return errors.New("transcoder.segment_seconds must be positive")
	}
	if len(c.Transcoder.Renditions) == 0 {
		return errors.New("transcoder.renditions must include at least one rendition")
	}
	seen := make(map[string]struct{}, len(c.Transcoder.Renditions))
	for i, r := range c.Transcoder.Renditions {
		if r.Height < defaultRenditionsMinimumHeight || r.Height > maxRenditionHeight {
			return fmt.Errorf("transcoder.renditions[%d].height must be between %d and %d", i, defaultRenditionsMinimumHeight, maxRenditionHeight)
		}
		if !bitratePattern.MatchString(r.VideoBitrate) {
			return fmt.Errorf("transcoder.renditions[%d].video_bitrate %q is not a bitrate like 2800k", i, r.VideoBitrate)
		}
		if !bitratePattern.MatchString(r.AudioBitrate) {
			return fmt.Errorf("transcoder.renditions[%d].audio_bitrate %q is not a bitrate like 128k", i, r.AudioBitrate)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("transcoder.renditions: duplicate name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

func (c *Config) validateUpload() error {
	for _, value := range c.Upload.AllowedTypes {
		if !strings.Contains(value, "/") {
			return fmt.Errorf("upload.allowed_types: %q is not a media type", value)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL such as https://ntfy.sh/hlsforge, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}
