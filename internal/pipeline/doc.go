// Package pipeline drives a complete processing run: discover new remote
// files into the catalog, then walk each eligible item through retrieval,
// verified archival, transcoding, output verification, publication, and
// cleanup.
//
// A run holds an exclusive file lock so concurrent invocations cannot fight
// over the catalog. Items advance through the catalog state machine one
// compare-and-swap at a time; a crash mid-run leaves items in a processing
// status that the next run sweeps to failed without spending a retry, after
// which the requeue pass returns them to cataloged.
//
// Retrieval and archival for the next item overlap with transcodes already
// running in the job pool. Everything after a transcode finishes happens in
// the pool's monitor sink, which serializes outcomes on one goroutine.
package pipeline
