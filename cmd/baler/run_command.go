package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"baler/internal/catalog"
	"baler/internal/logging"
	"baler/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var discoverOnly bool
	var processOnly bool
	var dryRun bool
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover and process remote media in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			if discoverOnly && processOnly {
				return fmt.Errorf("specify only one of --discover-only or --process-only")
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			runID := uuid.NewString()
			logPath := logging.RunLogPath(cfg, runID)
			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout", logPath},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to update baler.log link: %v\n", err)
			}
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
				logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "baler-run-*.log", Exclude: []string{logPath}},
			)

			store, err := catalog.Open(cfg)
			if err != nil {
				logger.Error("open catalog store", logging.Error(err))
				return err
			}
			defer store.Close()

			p, err := pipeline.New(cfg, store, logger)
			if err != nil {
				return fmt.Errorf("create pipeline: %w", err)
			}

			summary, runErr := p.Run(signalCtx, pipeline.RunOptions{
				DiscoverOnly: discoverOnly,
				ProcessOnly:  processOnly,
				DryRun:       dryRun,
				Workers:      workers,
				RunID:        runID,
			})
			if runErr != nil {
				return runErr
			}

			printSummary(cmd, summary, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&discoverOnly, "discover-only", false, "Catalog new remote files without processing them")
	cmd.Flags().BoolVar(&processOnly, "process-only", false, "Process pending items without scanning the remote store")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report intended actions without changing anything")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Override the configured transcode concurrency")
	return cmd
}

func printSummary(cmd *cobra.Command, summary pipeline.Summary, dryRun bool) {
	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintln(out, "Dry run: nothing was modified")
	}
	fmt.Fprintf(out, "Discovered: %d\n", summary.Discovered)
	if summary.Requeued > 0 {
		fmt.Fprintf(out, "Requeued: %d\n", summary.Requeued)
	}
	fmt.Fprintf(out, "Processed: %d\nCompleted: %d\nFailed: %d\nElapsed: %s\n",
		summary.Processed,
		summary.Completed,
		summary.Failed,
		summary.Elapsed.Round(time.Millisecond),
	)
}

// ensureCurrentLogPointer keeps LogDir/baler.log pointing at the latest run
// log so `tail -f` style workflows survive run rotation.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "baler.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
