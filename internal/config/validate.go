package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		return errors.New("paths.archive_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendRclone, BackendLocal:
	default:
		return fmt.Errorf("store.backend must be \"rclone\" or \"local\", got %q", c.Store.Backend)
	}
	if c.Store.Source == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/baler/config.toml"
		}
		return fmt.Errorf("store.source is required. Edit %s (create with 'baler config init')", defaultPath)
	}
	if c.Store.Destination == "" {
		return errors.New("store.destination is required")
	}
	if c.Store.Source == c.Store.Destination {
		return errors.New("store.source and store.destination must differ")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	switch c.Transcode.Engine {
	case EngineFFmpeg, EngineDrapto:
	default:
		return fmt.Errorf("transcode.engine must be \"ffmpeg\" or \"drapto\", got %q", c.Transcode.Engine)
	}
	if c.Transcode.Quality < 0 {
		return errors.New("transcode.quality must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"transcode.timeout":      c.Transcode.Timeout,
		"store.transfer_timeout": c.Store.TransferTimeout,
	})
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollIntervalMS <= 0 {
		return errors.New("workflow.poll_interval_ms must be positive")
	}
	if c.Workflow.MaxRetries < 0 {
		return errors.New("workflow.max_retries must be >= 0")
	}
	if c.Workflow.MinFreeGiB < 0 {
		return errors.New("workflow.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
