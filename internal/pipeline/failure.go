package pipeline

import (
	"context"
	"log/slog"

	"baler/internal/catalog"
	"baler/internal/logging"
	"baler/internal/notifications"
	"baler/internal/services"
)

// failItem records a stage failure against the item, spending one retry.
// The advance can lose a race with another writer; that only costs the
// error message, so it is logged and not retried.
func (p *Pipeline) failItem(ctx context.Context, itemID int64, stage string, err error) {
	logger := logging.WithContext(services.WithItemID(ctx, itemID), p.logger)
	message := err.Error()

	if _, advErr := p.store.Advance(ctx, itemID, catalog.StatusFailed, catalog.Fields{
		ErrorMessage:   &message,
		IncrementRetry: true,
	}); advErr != nil {
		logger.Error("failure could not be recorded", logging.Error(advErr))
	}

	p.failed.Add(1)
	logger.Error("item failed",
		logging.String("stage", stage),
		logging.Error(err),
		logging.Alert("item_failure"),
	)
	p.notify(ctx, logger, notifications.EventItemFailed, notifications.Payload{
		"context": stage,
		"error":   message,
	})
}

// notify publishes a notification and downgrades delivery problems to a log
// line; a broken ntfy endpoint never affects processing.
func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		logger.Debug("notification delivery failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}
