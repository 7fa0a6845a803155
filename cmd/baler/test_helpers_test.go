package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"baler/internal/catalog"
	"baler/internal/config"
	"baler/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv builds an isolated config on disk so commands exercise the
// same load path as a real invocation. Binaries are stubbed and the space
// floor is lowered so runs work inside the test tempdir.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Workflow.MinFreeGiB = 0
	cfg.Workflow.PollIntervalMS = 10
	cfg.Validation.VerifyTranscodes = false

	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func seedItem(t *testing.T, env *cliTestEnv, locator, filename string) *catalog.Item {
	t.Helper()
	store := testsupport.MustOpenStore(t, env.cfg)
	return testsupport.Discover(t, store, locator, filename, 2048)
}

func seedFailedItem(t *testing.T, env *cliTestEnv, locator, filename, message string) *catalog.Item {
	t.Helper()
	store := testsupport.MustOpenStore(t, env.cfg)
	item := testsupport.Discover(t, store, locator, filename, 2048)
	testsupport.AdvanceTo(t, store, item.ID, catalog.StatusCompressing)
	failed, err := store.Advance(context.Background(), item.ID, catalog.StatusFailed, catalog.Fields{
		ErrorMessage:   &message,
		IncrementRetry: true,
	})
	if err != nil {
		t.Fatalf("fail item: %v", err)
	}
	return failed
}

func seedCompletedItem(t *testing.T, env *cliTestEnv, locator, filename string) *catalog.Item {
	t.Helper()
	store := testsupport.MustOpenStore(t, env.cfg)
	item := testsupport.Discover(t, store, locator, filename, 2048)
	return testsupport.AdvanceTo(t, store, item.ID, catalog.StatusCompleted)
}
