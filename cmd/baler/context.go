package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"baler/internal/catalog"
	"baler/internal/config"
)

// commandContext lazily loads configuration once per invocation and shares
// it across subcommands.
type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configPath, c.configExists, c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, string, bool, error) {
	var flag string
	if c.configFlag != nil {
		flag = strings.TrimSpace(*c.configFlag)
	}
	cfg, path, exists, err := config.Load(flag)
	if err != nil {
		return nil, "", false, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, "", false, err
	}
	return cfg, path, exists, nil
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withStore opens the catalog for the duration of fn. Commands that only
// read or mutate catalog rows go through here so the open/close pairing
// lives in one place.
func (c *commandContext) withStore(fn func(*catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// shouldSkipConfig reports whether cmd or any ancestor opts out of config
// loading. Commands like "config init" must run before a config exists.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
