package main

import (
	"os"
	"path/filepath"
	"testing"

	"baler/internal/testsupport"
)

func TestRunDiscoverOnly(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Store.Source, "shows", "pilot.mp4"), 64*1024)

	stdout, _, err := runCLI(t, env.configPath, "run", "--discover-only")
	if err != nil {
		t.Fatalf("run --discover-only: %v", err)
	}
	requireContains(t, stdout, "Discovered: 1")
	requireContains(t, stdout, "Processed: 0")

	listOut, _, err := runCLI(t, env.configPath, "catalog", "list")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, listOut, "pilot.mp4")

	logs, err := filepath.Glob(filepath.Join(env.cfg.Paths.LogDir, "baler-run-*.log"))
	if err != nil || len(logs) == 0 {
		t.Fatalf("expected a per-run log file, got %v (err=%v)", logs, err)
	}
	if _, err := os.Lstat(filepath.Join(env.cfg.Paths.LogDir, "baler.log")); err != nil {
		t.Fatalf("expected baler.log pointer: %v", err)
	}
}

func TestRunDryRunLeavesCatalogAlone(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Store.Source, "shows", "pilot.mp4"), 64*1024)

	stdout, _, err := runCLI(t, env.configPath, "run", "--dry-run")
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	requireContains(t, stdout, "Dry run: nothing was modified")
	requireContains(t, stdout, "Discovered: 1")

	statusOut, _, err := runCLI(t, env.configPath, "catalog", "status")
	if err != nil {
		t.Fatalf("catalog status: %v", err)
	}
	requireContains(t, statusOut, "Catalog is empty")
}

func TestRunRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.configPath, "run", "--discover-only", "--process-only")
	if err == nil {
		t.Fatal("expected conflicting flags to error")
	}
	requireContains(t, err.Error(), "only one of")
}

func TestRunRecordsEngineFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Store.Source, "shows", "pilot.mp4"), 64*1024)

	// The stubbed ffmpeg exits zero without writing output, so the item
	// travels the retrieve and archive stages and then fails in transcode.
	stdout, _, err := runCLI(t, env.configPath, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, stdout, "Processed: 1")
	requireContains(t, stdout, "Failed: 1")

	listOut, _, err := runCLI(t, env.configPath, "catalog", "list", "--status", "failed")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, listOut, "pilot.mp4")
}

func TestRunNothingToProcess(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env.configPath, "run", "--process-only")
	if err != nil {
		t.Fatalf("run --process-only: %v", err)
	}
	requireContains(t, stdout, "Processed: 0")
}
