package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"baler/internal/catalog"
	"baler/internal/config"
	"baler/internal/deps"
	"baler/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system and catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *catalog.Store) error {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Configuration", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range configurationLines(ctx, cfg, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, status := range preflight.CheckSystemDeps(cfg) {
					fmt.Fprintln(stdout, dependencyLine(status, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Checks", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, result := range preflight.RunAll(cmd.Context(), cfg, store) {
					fmt.Fprintln(stdout, checkLine(result, statusError, colorize))
				}
				fmt.Fprintln(stdout, checkLine(preflight.CheckStoreFromConfig(cfg), statusWarn, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Catalog", colorize) {
					fmt.Fprintln(stdout, line)
				}
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "Catalog is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func configurationLines(ctx *commandContext, cfg *config.Config, colorize bool) []string {
	var lines []string

	if ctx.configExists {
		lines = append(lines, renderStatusLine("Config file", statusOK, ctx.configPath, colorize))
	} else {
		lines = append(lines, renderStatusLine("Config file", statusWarn, fmt.Sprintf("defaults (no file at %s)", ctx.configPath), colorize))
	}

	lines = append(lines, renderStatusLine("Backend", statusInfo, cfg.Store.Backend, colorize))
	lines = append(lines, renderStatusLine("Source", statusInfo, cfg.Store.Source, colorize))
	lines = append(lines, renderStatusLine("Destination", statusInfo, cfg.Store.Destination, colorize))
	lines = append(lines, renderStatusLine("Engine", statusInfo,
		fmt.Sprintf("%s (%d workers)", cfg.Transcode.Engine, cfg.TranscodeWorkers()), colorize))

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, renderStatusLine("Notifications", statusOK, "ntfy topic configured", colorize))
	} else {
		lines = append(lines, renderStatusLine("Notifications", statusInfo, "Disabled", colorize))
	}

	return lines
}

func dependencyLine(status deps.Status, colorize bool) string {
	if status.Available {
		return renderStatusLine(status.Name, statusOK, deps.Resolve(status.Command), colorize)
	}
	detail := status.Detail
	if status.Description != "" {
		detail = fmt.Sprintf("%s (%s)", status.Detail, status.Description)
	}
	kind := statusError
	if status.Optional {
		kind = statusWarn
	}
	return renderStatusLine(status.Name, kind, detail, colorize)
}

func checkLine(result preflight.Result, failKind statusKind, colorize bool) string {
	if result.Passed {
		return renderStatusLine(result.Name, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(result.Name, failKind, result.Detail, colorize)
}
