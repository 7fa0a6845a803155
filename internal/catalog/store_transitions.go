package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrItemNotFound marks operations against identifiers absent from the catalog.
var ErrItemNotFound = errors.New("item not found")

// Advance atomically moves an item to a new status and persists the supplied
// fields. The update is guarded by the set of statuses that may legally
// precede the target, so a concurrent or out-of-order advance affects zero
// rows and fails loudly with a TransitionError instead of writing anything.
func (s *Store) Advance(ctx context.Context, id int64, to Status, fields Fields) (*Item, error) {
	if _, ok := statusSet[to]; !ok {
		return nil, fmt.Errorf("advance item %d: unknown status %q", id, to)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	set := []string{"status = ?", "updated_at = ?"}
	args := []any{to, now}

	if fields.ErrorMessage != nil {
		set = append(set, "error_message = ?")
		args = append(args, nullableString(*fields.ErrorMessage))
	}
	if fields.StagingPath != nil {
		set = append(set, "staging_path = ?")
		args = append(args, nullableString(*fields.StagingPath))
	}
	if fields.ArchivePath != nil {
		set = append(set, "archive_path = ?")
		args = append(args, nullableString(*fields.ArchivePath))
	}
	if fields.OutputPath != nil {
		set = append(set, "output_path = ?")
		args = append(args, nullableString(*fields.OutputPath))
	}
	if fields.SourceDigest != nil {
		set = append(set, "source_digest = ?")
		args = append(args, nullableString(*fields.SourceDigest))
	}
	if fields.ArchiveDigest != nil {
		set = append(set, "archive_digest = ?")
		args = append(args, nullableString(*fields.ArchiveDigest))
	}
	if fields.OutputSize != nil {
		set = append(set, "output_size = ?")
		args = append(args, *fields.OutputSize)
	}
	if fields.Ratio != nil {
		set = append(set, "ratio = ?")
		args = append(args, *fields.Ratio)
	}
	if fields.IncrementRetry {
		set = append(set, "retry_count = retry_count + 1")
	}

	switch to {
	case StatusDownloading:
		set = append(set, "started_at = ?", "completed_at = NULL")
		args = append(args, now)
	case StatusCompleted:
		set = append(set, "completed_at = ?", "progress_stage = ?", "progress_percent = 100", "progress_message = NULL")
		args = append(args, now, string(StatusCompleted))
	case StatusFailed:
		var message string
		if fields.ErrorMessage != nil {
			message = *fields.ErrorMessage
		}
		set = append(set, "progress_stage = ?", "progress_percent = 0", "progress_message = ?")
		args = append(args, string(StatusFailed), nullableString(message))
	case StatusCataloged:
		if fields.ErrorMessage == nil {
			set = append(set, "error_message = NULL")
		}
		set = append(set, "progress_stage = NULL", "progress_percent = 0", "progress_message = NULL")
	}

	preds := legalPredecessors(to)
	query := `UPDATE media_items SET ` + strings.Join(set, ", ") +
		` WHERE id = ? AND status IN (` + makePlaceholders(len(preds)) + `)`
	args = append(args, id)
	args = append(args, statusArgs(preds)...)

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("advance item %d to %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("advance item %d to %s: rows affected: %w", id, to, err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, fmt.Errorf("advance item %d to %s: %w", id, to, ErrItemNotFound)
		}
		return nil, &TransitionError{ID: id, From: current.Status, To: to}
	}

	return s.GetByID(ctx, id)
}

// RequeueFailed resets failed items that still have retry budget back to
// cataloged so the next processing pass picks them up. Returns the number of
// items requeued.
func (s *Store) RequeueFailed(ctx context.Context, maxRetries int) (int64, error) {
	if maxRetries <= 0 {
		return 0, nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE media_items SET
            status = ?, error_message = NULL,
            progress_stage = NULL, progress_percent = 0, progress_message = NULL,
            updated_at = ?
         WHERE status = ? AND retry_count < ?`,
		StatusCataloged,
		now,
		StatusFailed,
		maxRetries,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue failed items: %w", err)
	}
	return res.RowsAffected()
}

// MarkInterrupted sweeps items stranded in a processing status by a crashed
// or stopped run. They become failed with an interruption message; the retry
// counter is left alone because no attempt actually completed.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	statuses := make([]Status, 0, len(processingStatuses))
	for status := range processingStatuses {
		statuses = append(statuses, status)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args := []any{StatusFailed, InterruptedReason, string(StatusFailed), InterruptedReason, now}
	args = append(args, statusArgs(statuses)...)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE media_items SET
            status = ?, error_message = ?,
            progress_stage = ?, progress_percent = 0, progress_message = ?,
            updated_at = ?
         WHERE status IN (`+makePlaceholders(len(statuses))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted items: %w", err)
	}
	return res.RowsAffected()
}

// RetryItem resets one failed item to cataloged regardless of retry budget.
func (s *Store) RetryItem(ctx context.Context, id int64) (*Item, error) {
	return s.Advance(ctx, id, StatusCataloged, Fields{})
}

// UpdateProgress persists progress columns without touching status. Progress
// writes race nothing: the status columns stay owned by the single advancing
// writer.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage, message string, percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE media_items SET progress_stage = ?, progress_message = ?, progress_percent = ?, updated_at = ? WHERE id = ?`,
		nullableString(stage),
		nullableString(message),
		percent,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("update progress for item %d: %w", id, err)
	}
	return nil
}
