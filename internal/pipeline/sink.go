package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"baler/internal/catalog"
	"baler/internal/jobpool"
	"baler/internal/logging"
	"baler/internal/notifications"
	"baler/internal/services"
	"baler/internal/transcode"
)

// handleOutcome consumes one transcode outcome from the pool monitor and
// walks the surviving item through verification, publication, and cleanup.
// The monitor serializes outcomes, so catalog writes here never race each
// other.
func (p *Pipeline) handleOutcome(ctx context.Context, outcome jobpool.Outcome) {
	ctx = services.WithItemID(ctx, outcome.ItemID)
	logger := logging.WithContext(ctx, p.logger)

	item, err := p.store.GetByID(ctx, outcome.ItemID)
	if err != nil {
		logger.Error("load item for outcome", logging.Error(err))
		return
	}
	if item == nil {
		logger.Error("outcome references an unknown item")
		return
	}

	if outcome.Err != nil {
		p.finishFailedTranscode(ctx, logger, item, outcome)
		return
	}

	result := outcome.Result
	if result == nil {
		p.failItem(ctx, item.ID, "compressing",
			services.Wrap(services.ErrExternalTool, "compressing", "transcode", "Engine reported success without a result", nil))
		return
	}

	outputSize := result.OutputSize
	ratio := result.Ratio()
	if _, err := p.store.Advance(ctx, item.ID, catalog.StatusVerifying, catalog.Fields{
		OutputSize: &outputSize,
		Ratio:      &ratio,
	}); err != nil {
		p.logAdvanceFailure(logger, catalog.StatusVerifying, err)
		return
	}
	logger.Info("transcode finished",
		logging.Duration("elapsed", outcome.Elapsed),
		logging.Int64("output_bytes", outputSize),
		logging.Float64("ratio", ratio),
	)

	if p.cfg.Validation.VerifyTranscodes {
		err := transcode.VerifyOutput(ctx, p.cfg.FFprobeBinary(), item.StagingPath, item.OutputPath, p.cfg.Validation.DurationToleranceSeconds)
		if err != nil {
			p.discardOutput(logger, item.OutputPath)
			p.failItem(ctx, item.ID, "verifying", err)
			return
		}
		logger.Info("output verified against source")
	}

	if _, err := p.store.Advance(ctx, item.ID, catalog.StatusUploading, catalog.Fields{}); err != nil {
		p.logAdvanceFailure(logger, catalog.StatusUploading, err)
		return
	}

	name := p.publishNameFor(item)
	if err := p.client.Publish(ctx, item.OutputPath, name); err != nil {
		if interrupted(ctx, err) {
			logger.Info("publish interrupted by shutdown")
			return
		}
		// The output and archive copy stay on disk; cleanup happens only
		// after a completed publish.
		p.failItem(ctx, item.ID, "uploading",
			services.Wrap(services.ErrTransient, "uploading", "publish", name, err))
		return
	}
	logger.Info("published output", logging.String("name", name))

	if _, err := p.store.Advance(ctx, item.ID, catalog.StatusCompleted, catalog.Fields{}); err != nil {
		p.logAdvanceFailure(logger, catalog.StatusCompleted, err)
		return
	}

	stagingDir := p.stagingDir(item.ID)
	if err := os.RemoveAll(stagingDir); err != nil {
		logger.Warn("staging cleanup failed",
			logging.String("path", stagingDir),
			logging.Error(err),
		)
	}

	p.completed.Add(1)
	logger.Info("item completed",
		logging.String("filename", item.Filename),
		logging.Float64("ratio", ratio),
	)
	p.notify(ctx, logger, notifications.EventItemCompleted, notifications.Payload{
		"filename": item.Filename,
		"ratio":    formatRatio(ratio),
	})
}

// finishFailedTranscode classifies a transcode failure. Timeouts and engine
// errors consume retry budget; a shutdown cancellation leaves the item in
// compressing for the next run's interrupted sweep, which fails it without
// spending a retry.
func (p *Pipeline) finishFailedTranscode(ctx context.Context, logger *slog.Logger, item *catalog.Item, outcome jobpool.Outcome) {
	err := outcome.Err
	switch {
	case outcome.TimedOut:
		p.discardOutput(logger, item.OutputPath)
		if !services.IsClassified(err) {
			err = services.Wrap(services.ErrTimeout, "compressing", "transcode",
				fmt.Sprintf("No completion within %d seconds", p.cfg.Transcode.Timeout), err)
		}
		p.failItem(ctx, item.ID, "compressing", err)
	case errors.Is(err, context.Canceled):
		logger.Info("transcode interrupted by shutdown",
			logging.Duration("elapsed", outcome.Elapsed),
		)
	default:
		p.discardOutput(logger, item.OutputPath)
		if !services.IsClassified(err) {
			err = services.Wrap(services.ErrExternalTool, "compressing", "transcode", item.Filename, err)
		}
		p.failItem(ctx, item.ID, "compressing", err)
	}
}

// discardOutput removes a partial or rejected output file.
func (p *Pipeline) discardOutput(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("output removal failed",
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

func formatRatio(ratio float64) string {
	if ratio <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%%", ratio*100)
}
