package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"baler/internal/catalog"
	"baler/internal/config"
	"baler/internal/deps"
)

// statfs is stubbed in tests to exercise the space check without filling
// a real filesystem.
var statfs = unix.Statfs

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies that the filesystem holding path has at least
// required bytes available to unprivileged writers.
func CheckDiskSpace(name, path string, required uint64) Result {
	var stat unix.Statfs_t
	if err := statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < required {
		return Result{
			Name:   name,
			Detail: fmt.Sprintf("%s (%s free, need %s)", path, formatBytes(int64(free)), formatBytes(int64(required))),
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", path, formatBytes(int64(free)))}
}

// SpaceRequirements computes the free bytes a run needs on the staging and
// archive filesystems. Staging holds the original plus the transcoded output
// at the same time, so the largest pending item counts twice there; the
// archive holds one verified copy. The configured floor applies to both.
func SpaceRequirements(cfg *config.Config, largestPending int64) (staging, archive uint64) {
	var floor uint64
	if cfg != nil && cfg.Workflow.MinFreeGiB > 0 {
		floor = uint64(cfg.Workflow.MinFreeGiB) << 30
	}
	staging = floor
	archive = floor
	if largestPending > 0 {
		if doubled := uint64(largestPending) * 2; doubled > staging {
			staging = doubled
		}
		if single := uint64(largestPending); single > archive {
			archive = single
		}
	}
	return staging, archive
}

// CheckCatalog verifies that the catalog database is present, matches the
// expected schema, and passes the SQLite integrity check.
func CheckCatalog(ctx context.Context, store *catalog.Store) Result {
	const name = "Catalog"

	if store == nil {
		return Result{Name: name, Detail: "store not open"}
	}
	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if health.Error != "" {
		return Result{Name: name, Detail: health.Error}
	}
	if !health.DatabaseExists {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", health.DBPath)}
	}
	if !health.TableExists {
		return Result{Name: name, Detail: "media_items table missing"}
	}
	if len(health.MissingColumns) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("schema missing columns: %s", strings.Join(health.MissingColumns, ", "))}
	}
	if !health.IntegrityCheck {
		return Result{Name: name, Detail: "integrity check failed"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("schema v%s, %d items", health.SchemaVersion, health.TotalItems)}
}

// CheckSystemDeps evaluates the external tools the configured run would
// execute. Both the pipeline gate and the CLI status command use this to
// avoid duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var requirements []deps.Requirement

	if cfg.Store.Backend == config.BackendRclone {
		requirements = append(requirements, deps.Requirement{
			Name:        "rclone",
			Command:     cfg.RcloneBinary(),
			Description: "Required for remote store transfers",
		})
	}

	ffmpegDescription := "Required for transcoding"
	if cfg.Transcode.Engine == config.EngineDrapto {
		ffmpegDescription = "Required by the drapto engine"
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "FFmpeg",
		Command:     cfg.FFmpegBinary(),
		Description: ffmpegDescription,
	})

	requirements = append(requirements, deps.Requirement{
		Name:        "FFprobe",
		Command:     cfg.FFprobeBinary(),
		Description: "Required for media inspection and verification",
		Optional:    !cfg.Validation.VerifyTranscodes,
	})

	return deps.CheckBinaries(requirements)
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}
