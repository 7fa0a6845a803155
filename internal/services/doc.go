// Package services carries the small cross-cutting pieces the pipeline
// stages share: context accessors that stamp an item ID, stage name, and
// run ID onto a context.Context for logging, and the error classification
// scheme (transient, integrity, timeout, configuration) that decides
// whether a failure spends a retry or stops the run.
//
// New stage code should classify failures with Wrap and read identifiers
// through the accessors here rather than inventing parallel conventions.
package services
