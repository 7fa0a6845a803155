package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"baler/internal/config"
)

// CheckStoreFromConfig evaluates the remote store configuration for status
// display. It verifies what can be verified without a transfer: the source
// locator shape, and for local stores that the directory is readable.
func CheckStoreFromConfig(cfg *config.Config) Result {
	const name = "Remote store"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	source := strings.TrimSpace(cfg.Store.Source)
	if source == "" {
		return Result{Name: name, Detail: "Missing source locator"}
	}

	switch cfg.Store.Backend {
	case config.BackendLocal:
		check := CheckDirectoryAccess(name, source)
		if check.Passed {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("local store at %s", source)}
		}
		return check
	case config.BackendRclone:
		if !strings.Contains(source, ":") {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not an rclone remote)", source)}
		}
		if _, err := exec.LookPath(cfg.RcloneBinary()); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("rclone binary %q not found", cfg.RcloneBinary())}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("rclone remote %s", source)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown backend %q", cfg.Store.Backend)}
	}
}
