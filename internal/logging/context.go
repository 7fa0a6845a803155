package logging

import (
	"context"
	"log/slog"

	"baler/internal/services"
)

// Canonical structured logging keys. Every package logs these under the same
// names so run logs grep cleanly.
const (
	FieldComponent = "component"
	FieldItemID    = "item_id"
	FieldStage     = "stage"
	FieldRunID     = "run_id"
	FieldAlert     = "alert"
)

// ContextFields reads the identity values carried on ctx (item id, stage,
// run id) and returns them as attributes.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var fields []Attr
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, Int64(FieldItemID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, String(FieldStage, stage))
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, String(FieldRunID, runID))
	}
	return fields
}

// WithContext attaches the context identity fields to logger. A nil logger
// yields the nop logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
