package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"baler/internal/config"
	"baler/internal/deps"
	"baler/internal/jobpool"
	"baler/internal/logging"
	"baler/internal/notifications"
	"baler/internal/preflight"
	"baler/internal/services"
)

// Run executes one pipeline run and reports what it did. The context governs
// submission and in-flight work: cancellation stops new submissions, cancels
// running transcodes, and still drains every job through the monitor so no
// terminal effect is lost.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	start := time.Now()
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)
	p.resetCounters()

	finish := func(requeued int64, err error) (Summary, error) {
		summary := p.summary(runID, time.Since(start))
		summary.Requeued = int(requeued)
		return summary, err
	}

	logger.Info("run starting",
		logging.String("store_backend", p.cfg.Store.Backend),
		logging.String("engine", p.engine.Name()),
		logging.Bool("dry_run", opts.DryRun),
	)

	if opts.DryRun {
		logger.Info("dry run: catalog, filesystem, and remote store stay untouched")
	} else {
		held, err := p.lock.TryLock()
		if err != nil {
			return finish(0, fmt.Errorf("acquire run lock: %w", err))
		}
		if !held {
			return finish(0, fmt.Errorf("another run holds the lock at %s", p.lockPath))
		}
		defer func() {
			if err := p.lock.Unlock(); err != nil {
				logger.Warn("release run lock failed", logging.Error(err))
			}
		}()

		swept, err := p.store.MarkInterrupted(ctx)
		if err != nil {
			return finish(0, fmt.Errorf("sweep interrupted items: %w", err))
		}
		if swept > 0 {
			logger.Warn("previous run left items mid-flight; marked failed without consuming retry budget",
				logging.Int64("count", swept),
				logging.Alert("interrupted_sweep"),
			)
		}
	}

	if !opts.ProcessOnly {
		count, err := p.discover(ctx, logger, opts.DryRun)
		if err != nil {
			return finish(0, err)
		}
		if count > 0 && !opts.DryRun {
			p.notify(ctx, logger, notifications.EventItemsDiscovered, notifications.Payload{
				"count": strconv.Itoa(count),
			})
		}
	}

	if opts.DiscoverOnly {
		summary, _ := finish(0, nil)
		logger.Info("discovery finished",
			logging.Int("discovered", summary.Discovered),
			logging.Duration("elapsed", summary.Elapsed),
		)
		return summary, nil
	}

	// The gate runs after discovery so the space requirement covers items
	// cataloged moments ago, and before requeue so a doomed run changes no
	// item status.
	if err := p.gate(ctx, logger); err != nil {
		return finish(0, err)
	}

	var requeued int64
	if !opts.DryRun {
		var err error
		requeued, err = p.store.RequeueFailed(ctx, p.cfg.Workflow.MaxRetries)
		if err != nil {
			return finish(0, fmt.Errorf("requeue failed items: %w", err))
		}
		if requeued > 0 {
			logger.Info("requeued failed items with retry budget", logging.Int64("count", requeued))
		}
	}

	items, err := p.store.Eligible(ctx)
	if err != nil {
		return finish(requeued, fmt.Errorf("list eligible items: %w", err))
	}
	if len(items) == 0 {
		summary, _ := finish(requeued, nil)
		logger.Info("nothing to process",
			logging.Int("discovered", summary.Discovered),
			logging.Duration("elapsed", summary.Elapsed),
		)
		return summary, nil
	}

	if opts.DryRun {
		p.planItems(ctx, logger, items)
		return finish(requeued, nil)
	}

	workers := p.cfg.TranscodeWorkers()
	if opts.Workers > 0 {
		workers = config.ClampWorkers(opts.Workers)
	}
	pollInterval := time.Duration(p.cfg.Workflow.PollIntervalMS) * time.Millisecond
	pool := jobpool.New(workers, pollInterval, p.handleOutcome, p.logger)

	// The monitor must outlive ctx: when a shutdown signal cancels running
	// transcodes, their outcomes still have to reach the sink.
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	monitorCtx = services.WithRunID(monitorCtx, runID)
	go pool.Run(monitorCtx)

	logger.Info("processing eligible items",
		logging.Int("count", len(items)),
		logging.Int("workers", workers),
	)

	for _, item := range items {
		if ctx.Err() != nil {
			logger.Info("shutdown requested; submission stopped")
			break
		}
		p.processItem(ctx, pool, item)
	}

	if err := pool.Drain(monitorCtx); err != nil {
		logger.Warn("drain interrupted", logging.Error(err))
	}
	stopMonitor()

	summary, _ := finish(requeued, nil)
	logger.Info("run complete",
		logging.Int("discovered", summary.Discovered),
		logging.Int("requeued", summary.Requeued),
		logging.Int("processed", summary.Processed),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed),
	)
	if summary.Processed > 0 {
		p.notify(ctx, logger, notifications.EventRunCompleted, notifications.Payload{
			"processed": strconv.Itoa(summary.Completed),
			"failed":    strconv.Itoa(summary.Failed),
			"duration":  summary.Elapsed.Round(time.Second).String(),
		})
	}
	return summary, nil
}

// gate aborts the run when the host cannot finish work it would start.
func (p *Pipeline) gate(ctx context.Context, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, p.cfg, p.store)
	for _, result := range results {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
	}
	failures := preflight.Failed(results)
	for _, failure := range failures {
		logger.Error("preflight check failed",
			logging.String("check", failure.Name),
			logging.String("detail", failure.Detail),
			logging.Alert("preflight_failure"),
		)
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", failures[0].Name, failures[0].Detail, nil)
	}

	missing := deps.MissingRequired(preflight.CheckSystemDeps(p.cfg))
	for _, status := range missing {
		logger.Error("required tool missing",
			logging.String("tool", status.Name),
			logging.String("detail", status.Detail),
			logging.Alert("dependency_missing"),
		)
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", missing[0].Name, missing[0].Detail, nil)
	}
	return nil
}
