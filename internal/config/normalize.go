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
	c.normalizeStore()
	c.normalizeTranscode()
	c.normalizeWorkflow()
	c.normalizeValidation()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
	c.Store.Source = strings.TrimSpace(c.Store.Source)
	c.Store.Destination = strings.TrimSpace(c.Store.Destination)
	if c.Store.TransferTimeout <= 0 {
		c.Store.TransferTimeout = defaultTransferTimeout
	}

	if len(c.Store.Extensions) == 0 {
		c.Store.Extensions = defaultExtensions()
		return
	}
	exts := make([]string, 0, len(c.Store.Extensions))
	seen := make(map[string]struct{}, len(c.Store.Extensions))
	for _, ext := range c.Store.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultExtensions()
	}
	c.Store.Extensions = exts
}

func (c *Config) normalizeTranscode() {
	c.Transcode.Engine = strings.ToLower(strings.TrimSpace(c.Transcode.Engine))
	if c.Transcode.Engine == "" {
		c.Transcode.Engine = defaultTranscodeEngine
	}
	c.Transcode.VideoCodec = strings.TrimSpace(c.Transcode.VideoCodec)
	if c.Transcode.VideoCodec == "" {
		c.Transcode.VideoCodec = defaultVideoCodec
	}
	c.Transcode.Preset = strings.TrimSpace(c.Transcode.Preset)
	c.Transcode.AudioCodec = strings.TrimSpace(c.Transcode.AudioCodec)
	if c.Transcode.AudioCodec == "" {
		c.Transcode.AudioCodec = defaultAudioCodec
	}
	c.Transcode.AudioBitrate = strings.TrimSpace(c.Transcode.AudioBitrate)
	if c.Transcode.Timeout <= 0 {
		c.Transcode.Timeout = defaultTranscodeTimeout
	}
	if c.Transcode.MaxConcurrent < 0 {
		c.Transcode.MaxConcurrent = 0
	}
	if c.Transcode.MaxConcurrent > maxTranscodeWorkers {
		c.Transcode.MaxConcurrent = maxTranscodeWorkers
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollIntervalMS <= 0 {
		c.Workflow.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Workflow.MaxRetries < 0 {
		c.Workflow.MaxRetries = 0
	}
	if c.Workflow.MinFreeGiB < 0 {
		c.Workflow.MinFreeGiB = 0
	}
}

func (c *Config) normalizeValidation() {
	if c.Validation.DurationToleranceSeconds < 0 {
		c.Validation.DurationToleranceSeconds = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("BALER_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
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
