package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"baler/internal/catalog"
	"baler/internal/fileutil"
	"baler/internal/jobpool"
	"baler/internal/logging"
	"baler/internal/services"
	"baler/internal/transcode"
)

// progressWriteInterval throttles progress persistence; transcode engines
// report far more often than the catalog needs to record.
const progressWriteInterval = time.Second

// processItem walks one item through retrieval and archival, then submits
// its transcode to the pool. Failures advance the item to failed and never
// stop the run; everything after submission belongs to the monitor sink.
func (p *Pipeline) processItem(ctx context.Context, pool *jobpool.Pool, item *catalog.Item) {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, p.logger)
	p.processed.Add(1)

	stagingDir := p.stagingDir(item.ID)
	stagingPath := filepath.Join(stagingDir, item.Filename)

	current, err := p.store.Advance(ctx, item.ID, catalog.StatusDownloading, catalog.Fields{StagingPath: &stagingPath})
	if err != nil {
		p.logAdvanceFailure(logger, catalog.StatusDownloading, err)
		return
	}
	item = current

	logger.Info("retrieving item",
		logging.String("locator", item.SourceLocator),
		logging.Int64("size_bytes", item.OriginalSize),
	)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		p.failItem(ctx, item.ID, "downloading", services.Wrap(services.ErrTransient, "downloading", "create staging dir", stagingDir, err))
		return
	}
	if err := p.client.Retrieve(ctx, item.SourceLocator, stagingPath); err != nil {
		if interrupted(ctx, err) {
			logger.Info("retrieve interrupted by shutdown")
			return
		}
		p.failItem(ctx, item.ID, "downloading", services.Wrap(services.ErrTransient, "downloading", "retrieve", item.SourceLocator, err))
		return
	}

	if _, err := p.store.Advance(ctx, item.ID, catalog.StatusArchiving, catalog.Fields{}); err != nil {
		p.logAdvanceFailure(logger, catalog.StatusArchiving, err)
		return
	}

	archivePath := p.archivePath(item)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		p.failItem(ctx, item.ID, "archiving", services.Wrap(services.ErrTransient, "archiving", "create archive dir", filepath.Dir(archivePath), err))
		return
	}
	if err := fileutil.CopyFile(stagingPath, archivePath); err != nil {
		_ = os.Remove(archivePath)
		p.failItem(ctx, item.ID, "archiving", services.Wrap(services.ErrTransient, "archiving", "copy to archive", archivePath, err))
		return
	}
	verification, err := fileutil.VerifyFiles(stagingPath, archivePath)
	if err != nil {
		_ = os.Remove(archivePath)
		p.failItem(ctx, item.ID, "archiving", services.Wrap(services.ErrTransient, "archiving", "hash archive copy", archivePath, err))
		return
	}
	if !verification.Equal {
		// Only the unverified copy is deleted; the staged original stays
		// for the retry.
		_ = os.Remove(archivePath)
		p.failItem(ctx, item.ID, "archiving", services.Wrap(services.ErrIntegrity, "archiving", "verify archive copy",
			fmt.Sprintf("Digest mismatch: source %s, archive %s", verification.DigestA, verification.DigestB), nil))
		return
	}
	logger.Info("archived verified copy",
		logging.String("archive_path", archivePath),
		logging.String("digest", verification.DigestA),
	)

	outputPath := filepath.Join(stagingDir, transcode.OutputName(item.Filename))
	if _, err := p.store.Advance(ctx, item.ID, catalog.StatusCompressing, catalog.Fields{
		ArchivePath:   &archivePath,
		SourceDigest:  &verification.DigestA,
		ArchiveDigest: &verification.DigestB,
		OutputPath:    &outputPath,
	}); err != nil {
		p.logAdvanceFailure(logger, catalog.StatusCompressing, err)
		return
	}

	timeout := time.Duration(p.cfg.Transcode.Timeout) * time.Second
	runner := p.transcodeRunner(stagingPath, outputPath, item.ID)
	if err := pool.Submit(ctx, item.ID, timeout, runner); err != nil {
		// Submission only fails on shutdown; the interrupted sweep of the
		// next run picks this item up.
		logger.Info("submission abandoned", logging.Error(err))
		return
	}
	logger.Info("transcode submitted",
		logging.String("engine", p.engine.Name()),
		logging.Duration("timeout", timeout),
	)
}

func (p *Pipeline) transcodeRunner(inputPath, outputPath string, itemID int64) jobpool.Runner {
	progress := p.progressFunc(itemID)
	return func(runCtx context.Context) (*transcode.Result, error) {
		return p.engine.Transcode(runCtx, transcode.Request{
			InputPath:  inputPath,
			OutputPath: outputPath,
			Progress:   progress,
		})
	}
}

// progressFunc persists engine progress into the catalog, throttled per
// item. Writes use a background context so a shutdown that kills the
// transcode does not also discard its final progress line.
func (p *Pipeline) progressFunc(itemID int64) func(transcode.ProgressUpdate) {
	var last time.Time
	return func(update transcode.ProgressUpdate) {
		now := time.Now()
		if update.Percent < 100 && now.Sub(last) < progressWriteInterval {
			return
		}
		last = now

		stage := update.Stage
		if stage == "" {
			stage = string(catalog.StatusCompressing)
		}
		message := update.Message
		if message == "" && update.Speed > 0 {
			message = fmt.Sprintf("%.2fx realtime", update.Speed)
		}
		if err := p.store.UpdateProgress(context.Background(), itemID, stage, message, update.Percent); err != nil {
			p.logger.Debug("progress write failed",
				logging.Int64(logging.FieldItemID, itemID),
				logging.Error(err),
			)
		}
	}
}

// planItems logs what a processing pass would do without doing it.
func (p *Pipeline) planItems(ctx context.Context, logger *slog.Logger, items []*catalog.Item) {
	for _, item := range items {
		logger.Info("dry run: would process",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("locator", item.SourceLocator),
			logging.Int64("size_bytes", item.OriginalSize),
			logging.String("staging_path", filepath.Join(p.stagingDir(item.ID), item.Filename)),
			logging.String("archive_path", p.archivePath(item)),
			logging.String("publish_name", p.publishNameFor(item)),
		)
	}
	logger.Info("dry run: processing plan complete", logging.Int("count", len(items)))
}

func (p *Pipeline) stagingDir(itemID int64) string {
	return filepath.Join(p.cfg.Paths.StagingDir, fmt.Sprintf("item-%d", itemID))
}

// archivePath mirrors the remote layout under the archive directory so the
// durable copy stays browsable without the catalog.
func (p *Pipeline) archivePath(item *catalog.Item) string {
	rel := relativeLocator(p.cfg.Store.Source, item.SourceLocator, item.Filename)
	return filepath.Join(p.cfg.Paths.ArchiveDir, filepath.FromSlash(rel))
}

func (p *Pipeline) publishNameFor(item *catalog.Item) string {
	rel := relativeLocator(p.cfg.Store.Source, item.SourceLocator, item.Filename)
	return publishName(rel)
}

func (p *Pipeline) logAdvanceFailure(logger *slog.Logger, to catalog.Status, err error) {
	var transition *catalog.TransitionError
	if errors.As(err, &transition) {
		logger.Warn("item moved concurrently; skipping",
			logging.String("from", string(transition.From)),
			logging.String("to", string(transition.To)),
		)
		return
	}
	logger.Error("status advance failed",
		logging.String("to", string(to)),
		logging.Error(err),
	)
}

// interrupted distinguishes shutdown cancellation from a real stage error
// so an aborted run does not consume retry budget.
func interrupted(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}
