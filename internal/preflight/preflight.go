package preflight

import (
	"context"

	"baler/internal/catalog"
	"baler/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all run-blocking preflight checks for the given config.
// The store is used to size the disk space requirement against the largest
// pending item and to verify catalog health; pass nil to fall back to the
// configured floor alone.
func RunAll(ctx context.Context, cfg *config.Config, store *catalog.Store) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Archive directory", cfg.Paths.ArchiveDir))

	var largest int64
	if store != nil {
		if items, err := store.Eligible(ctx); err == nil {
			for _, item := range items {
				if item.OriginalSize > largest {
					largest = item.OriginalSize
				}
			}
		}
	}
	stagingNeed, archiveNeed := SpaceRequirements(cfg, largest)
	results = append(results, CheckDiskSpace("Staging space", cfg.Paths.StagingDir, stagingNeed))
	results = append(results, CheckDiskSpace("Archive space", cfg.Paths.ArchiveDir, archiveNeed))

	if store != nil {
		results = append(results, CheckCatalog(ctx, store))
	}

	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
