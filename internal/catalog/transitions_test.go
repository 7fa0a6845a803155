package catalog_test

import (
	"context"
	"errors"
	"testing"

	"baler/internal/catalog"
	"baler/internal/testsupport"
)

func TestAdvanceWalksForwardChain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.Discover(t, store, "source:chain.mkv", "chain.mkv", 1024)

	chain := []catalog.Status{
		catalog.StatusDownloading,
		catalog.StatusArchiving,
		catalog.StatusCompressing,
		catalog.StatusVerifying,
		catalog.StatusUploading,
		catalog.StatusCompleted,
	}
	for _, status := range chain {
		updated, err := store.Advance(ctx, item.ID, status, catalog.Fields{})
		if err != nil {
			t.Fatalf("advance to %s: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("expected status %s, got %s", status, updated.Status)
		}
	}

	final, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.StartedAt == nil {
		t.Fatal("expected started_at set when downloading began")
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completed_at set on completion")
	}
	if final.ProgressPercent != 100 {
		t.Fatalf("expected progress forced to 100 on completion, got %f", final.ProgressPercent)
	}
}

func TestAdvanceRejectsSkippedStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.Discover(t, store, "source:skip.mkv", "skip.mkv", 1024)

	_, err := store.Advance(ctx, item.ID, catalog.StatusCompressing, catalog.Fields{})
	if err == nil {
		t.Fatal("expected error advancing cataloged item straight to compressing")
	}
	var transitionErr *catalog.TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected TransitionError, got %T: %v", err, err)
	}
	if transitionErr.From != catalog.StatusCataloged || transitionErr.To != catalog.StatusCompressing {
		t.Fatalf("unexpected transition error: %+v", transitionErr)
	}

	unchanged, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if unchanged.Status != catalog.StatusCataloged {
		t.Fatalf("expected status untouched after rejected advance, got %s", unchanged.Status)
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.Discover(t, store, "source:terminal.mkv", "terminal.mkv", 1024)
	testsupport.AdvanceTo(t, store, item.ID, catalog.StatusCompleted)

	for _, status := range []catalog.Status{catalog.StatusDownloading, catalog.StatusFailed, catalog.StatusCataloged} {
		if _, err := store.Advance(ctx, item.ID, status, catalog.Fields{}); err == nil {
			t.Fatalf("expected completed item to reject advance to %s", status)
		}
	}
}

func TestAdvanceMissingItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Advance(context.Background(), 404, catalog.StatusDownloading, catalog.Fields{})
	if !errors.Is(err, catalog.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestFailureAndResetKeepRetryCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.Discover(t, store, "source:retry.mkv", "retry.mkv", 1024)

	if _, err := store.Advance(ctx, item.ID, catalog.StatusDownloading, catalog.Fields{}); err != nil {
		t.Fatalf("advance to downloading: %v", err)
	}
	errorText := "network flake"
	failed, err := store.Advance(ctx, item.ID, catalog.StatusFailed, catalog.Fields{
		ErrorMessage:   &errorText,
		IncrementRetry: true,
	})
	if err != nil {
		t.Fatalf("advance to failed: %v", err)
	}
	if failed.RetryCount != 1 {
		t.Fatalf("expected retry count 1 after first failure, got %d", failed.RetryCount)
	}
	if failed.ErrorMessage != errorText {
		t.Fatalf("expected error message persisted, got %q", failed.ErrorMessage)
	}

	reset, err := store.Advance(ctx, item.ID, catalog.StatusCataloged, catalog.Fields{})
	if err != nil {
		t.Fatalf("reset to cataloged: %v", err)
	}
	if reset.ErrorMessage != "" {
		t.Fatalf("expected error cleared on reset, got %q", reset.ErrorMessage)
	}
	if reset.RetryCount != 1 {
		t.Fatalf("expected retry count preserved on reset, got %d", reset.RetryCount)
	}

	if _, err := store.Advance(ctx, item.ID, catalog.StatusDownloading, catalog.Fields{}); err != nil {
		t.Fatalf("second advance to downloading: %v", err)
	}
	failed, err = store.Advance(ctx, item.ID, catalog.StatusFailed, catalog.Fields{
		ErrorMessage:   &errorText,
		IncrementRetry: true,
	})
	if err != nil {
		t.Fatalf("second failure: %v", err)
	}
	if failed.RetryCount != 2 {
		t.Fatalf("expected retry count to climb to 2, got %d", failed.RetryCount)
	}
}

func TestRequeueFailedRespectsBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	fresh := testsupport.Discover(t, store, "source:fresh.mkv", "fresh.mkv", 10)
	spent := testsupport.Discover(t, store, "source:spent.mkv", "spent.mkv", 10)

	errorText := "boom"
	failOnce := func(id int64) {
		t.Helper()
		if _, err := store.Advance(ctx, id, catalog.StatusDownloading, catalog.Fields{}); err != nil {
			t.Fatalf("advance to downloading: %v", err)
		}
		if _, err := store.Advance(ctx, id, catalog.StatusFailed, catalog.Fields{ErrorMessage: &errorText, IncrementRetry: true}); err != nil {
			t.Fatalf("advance to failed: %v", err)
		}
	}

	failOnce(fresh.ID)
	for i := 0; i < 3; i++ {
		failOnce(spent.ID)
		if i < 2 {
			if _, err := store.Advance(ctx, spent.ID, catalog.StatusCataloged, catalog.Fields{}); err != nil {
				t.Fatalf("reset spent item: %v", err)
			}
		}
	}

	count, err := store.RequeueFailed(ctx, 3)
	if err != nil {
		t.Fatalf("RequeueFailed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the fresh item requeued, got %d", count)
	}

	updated, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID fresh: %v", err)
	}
	if updated.Status != catalog.StatusCataloged {
		t.Fatalf("expected fresh item cataloged, got %s", updated.Status)
	}

	exhausted, err := store.GetByID(ctx, spent.ID)
	if err != nil {
		t.Fatalf("GetByID spent: %v", err)
	}
	if exhausted.Status != catalog.StatusFailed {
		t.Fatalf("expected spent item left failed, got %s", exhausted.Status)
	}
}

func TestMarkInterruptedSweepsProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	waiting := testsupport.Discover(t, store, "source:waiting.mkv", "waiting.mkv", 10)
	downloading := testsupport.Discover(t, store, "source:downloading.mkv", "downloading.mkv", 10)
	compressing := testsupport.Discover(t, store, "source:compressing.mkv", "compressing.mkv", 10)
	done := testsupport.Discover(t, store, "source:done.mkv", "done.mkv", 10)

	testsupport.AdvanceTo(t, store, downloading.ID, catalog.StatusDownloading)
	testsupport.AdvanceTo(t, store, compressing.ID, catalog.StatusCompressing)
	testsupport.AdvanceTo(t, store, done.ID, catalog.StatusCompleted)

	count, err := store.MarkInterrupted(ctx)
	if err != nil {
		t.Fatalf("MarkInterrupted: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 interrupted items, got %d", count)
	}

	for _, id := range []int64{downloading.ID, compressing.ID} {
		swept, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if swept.Status != catalog.StatusFailed {
			t.Fatalf("expected interrupted item failed, got %s", swept.Status)
		}
		if swept.ErrorMessage != catalog.InterruptedReason {
			t.Fatalf("expected interruption message, got %q", swept.ErrorMessage)
		}
		if swept.RetryCount != 0 {
			t.Fatalf("interruption must not consume retry budget, got count %d", swept.RetryCount)
		}
	}

	untouched, err := store.GetByID(ctx, waiting.ID)
	if err != nil {
		t.Fatalf("GetByID waiting: %v", err)
	}
	if untouched.Status != catalog.StatusCataloged {
		t.Fatalf("expected cataloged item untouched, got %s", untouched.Status)
	}
	completed, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID done: %v", err)
	}
	if completed.Status != catalog.StatusCompleted {
		t.Fatalf("expected completed item untouched, got %s", completed.Status)
	}
}

func TestRetryItemRequiresFailedStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.Discover(t, store, "source:manual.mkv", "manual.mkv", 10)

	if _, err := store.RetryItem(ctx, item.ID); err == nil {
		t.Fatal("expected retry of cataloged item to fail")
	}

	testsupport.AdvanceTo(t, store, item.ID, catalog.StatusDownloading)
	errorText := "boom"
	if _, err := store.Advance(ctx, item.ID, catalog.StatusFailed, catalog.Fields{ErrorMessage: &errorText, IncrementRetry: true}); err != nil {
		t.Fatalf("advance to failed: %v", err)
	}

	retried, err := store.RetryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("RetryItem: %v", err)
	}
	if retried.Status != catalog.StatusCataloged {
		t.Fatalf("expected cataloged after retry, got %s", retried.Status)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("expected error cleared, got %q", retried.ErrorMessage)
	}
}

func TestAdvancePersistsFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.Discover(t, store, "source:fields.mkv", "fields.mkv", 2000)

	stagingPath := "/tmp/staging/fields.mkv"
	if _, err := store.Advance(ctx, item.ID, catalog.StatusDownloading, catalog.Fields{StagingPath: &stagingPath}); err != nil {
		t.Fatalf("advance to downloading: %v", err)
	}

	archivePath := "/tmp/archive/fields.mkv"
	sourceDigest := "abc123"
	archiveDigest := "abc123"
	if _, err := store.Advance(ctx, item.ID, catalog.StatusArchiving, catalog.Fields{
		ArchivePath:   &archivePath,
		SourceDigest:  &sourceDigest,
		ArchiveDigest: &archiveDigest,
	}); err != nil {
		t.Fatalf("advance to archiving: %v", err)
	}

	if _, err := store.Advance(ctx, item.ID, catalog.StatusCompressing, catalog.Fields{}); err != nil {
		t.Fatalf("advance to compressing: %v", err)
	}

	outputPath := "/tmp/staging/fields.av1.mkv"
	outputSize := int64(500)
	ratio := 0.25
	updated, err := store.Advance(ctx, item.ID, catalog.StatusVerifying, catalog.Fields{
		OutputPath: &outputPath,
		OutputSize: &outputSize,
		Ratio:      &ratio,
	})
	if err != nil {
		t.Fatalf("advance to verifying: %v", err)
	}

	if updated.StagingPath != stagingPath {
		t.Fatalf("expected staging path persisted, got %q", updated.StagingPath)
	}
	if updated.ArchivePath != archivePath {
		t.Fatalf("expected archive path persisted, got %q", updated.ArchivePath)
	}
	if updated.SourceDigest != sourceDigest || updated.ArchiveDigest != archiveDigest {
		t.Fatalf("expected digests persisted, got %q and %q", updated.SourceDigest, updated.ArchiveDigest)
	}
	if updated.OutputSize != outputSize {
		t.Fatalf("expected output size persisted, got %d", updated.OutputSize)
	}
	if updated.Ratio != ratio {
		t.Fatalf("expected ratio persisted, got %f", updated.Ratio)
	}
}

func TestUpdateProgressClampsPercent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.Discover(t, store, "source:progress.mkv", "progress.mkv", 10)
	testsupport.AdvanceTo(t, store, item.ID, catalog.StatusCompressing)

	if err := store.UpdateProgress(ctx, item.ID, "compressing", "encoding frames", 150); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.ProgressPercent != 100 {
		t.Fatalf("expected percent clamped to 100, got %f", updated.ProgressPercent)
	}
	if updated.ProgressStage != "compressing" || updated.ProgressMessage != "encoding frames" {
		t.Fatalf("expected progress fields persisted, got stage=%q message=%q", updated.ProgressStage, updated.ProgressMessage)
	}
	if updated.Status != catalog.StatusCompressing {
		t.Fatalf("progress update must not change status, got %s", updated.Status)
	}
}
