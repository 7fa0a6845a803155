package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	ArchiveDir string `toml:"archive_dir"`
	LogDir     string `toml:"log_dir"`
}

// Store contains configuration for the remote media store.
type Store struct {
	Backend         string   `toml:"backend"`
	Source          string   `toml:"source"`
	Destination     string   `toml:"destination"`
	Extensions      []string `toml:"extensions"`
	TransferTimeout int      `toml:"transfer_timeout"`
}

// Transcode contains configuration for the transform engine.
type Transcode struct {
	Engine        string   `toml:"engine"`
	VideoCodec    string   `toml:"video_codec"`
	Preset        string   `toml:"preset"`
	Quality       int      `toml:"quality"`
	AudioCodec    string   `toml:"audio_codec"`
	AudioBitrate  string   `toml:"audio_bitrate"`
	ExtraArgs     []string `toml:"extra_args"`
	Timeout       int      `toml:"timeout"`
	MaxConcurrent int      `toml:"max_concurrent"`
}

// Workflow contains configuration for run pacing and retry policy.
type Workflow struct {
	PollIntervalMS int `toml:"poll_interval_ms"`
	MaxRetries     int `toml:"max_retries"`
	MinFreeGiB     int `toml:"min_free_gib"`
}

// Validation contains configuration for post-transcode verification.
type Validation struct {
	VerifyTranscodes         bool    `toml:"verify_transcodes"`
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Discovery      bool   `toml:"discovery"`
	ItemCompleted  bool   `toml:"item_completed"`
	RunCompleted   bool   `toml:"run_completed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Baler.
//
// Configuration sections by subsystem:
//   - Paths: staging, archive, and log directories
//   - Store: remote store backend, source/destination locators, discovery filter
//   - Transcode: engine selection, encoder parameters, timeout, concurrency
//   - Workflow: monitor poll interval, retry budget, disk space floor
//   - Validation: post-transcode verification checks
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Transcode     Transcode     `toml:"transcode"`
	Workflow      Workflow      `toml:"workflow"`
	Validation    Validation    `toml:"validation"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/baler/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// resolveConfigPath picks the config file a run should use. An explicit flag
// wins even when the file does not exist yet; otherwise the XDG default is
// preferred over a baler.toml in the working directory.
func resolveConfigPath(flag string) (string, bool, error) {
	if flag != "" {
		expanded, err := expandPath(flag)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	defaultPath, err := expandPath("~/.config/baler/config.toml")
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("baler.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs. The archive directory
// is created best-effort so config loading survives temporarily offline
// storage; preflight reports it properly before any item is touched.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) != "" {
		_ = os.MkdirAll(c.Paths.ArchiveDir, 0o755)
	}
	return nil
}

// RcloneBinary returns the transfer tool executable name.
func (c *Config) RcloneBinary() string {
	return "rclone"
}

// FFmpegBinary returns the ffmpeg executable name used by the default engine.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// TranscodeWorkers resolves the transform concurrency bound. A zero value
// means one fewer than the CPU count; the result is always within [1, 8].
func (c *Config) TranscodeWorkers() int {
	workers := c.Transcode.MaxConcurrent
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
	}
	return ClampWorkers(workers)
}

// ClampWorkers bounds a concurrency value to the supported [1, 8] range.
func ClampWorkers(workers int) int {
	if workers < 1 {
		return 1
	}
	if workers > maxTranscodeWorkers {
		return maxTranscodeWorkers
	}
	return workers
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	expanded, err := expandHome(pathValue)
	if err != nil {
		return "", err
	}
	cleaned := filepath.Clean(expanded)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// expandHome rewrites a leading ~ to the current user's home directory.
// A ~user form is passed through untouched.
func expandHome(pathValue string) (string, error) {
	if !strings.HasPrefix(pathValue, "~") {
		return pathValue, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if pathValue == "~" {
		return home, nil
	}
	if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
		return filepath.Join(home, pathValue[2:]), nil
	}
	return pathValue, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
