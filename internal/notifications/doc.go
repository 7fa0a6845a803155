// Package notifications pushes run milestones to an operator's phone or
// desktop through ntfy.
//
// The pipeline publishes enumerated events (items discovered, item
// completed, item failed, run completed) through the Service interface and
// never builds HTTP requests itself. When no topic is configured the
// service becomes a no-op, so callers publish unconditionally. Per-event
// toggles in the configuration choose which milestones actually go out;
// error events additionally carry a high priority so they break through
// notification quiet hours.
package notifications
