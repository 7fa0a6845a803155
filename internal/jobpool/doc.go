// Package jobpool bounds transcode concurrency and watches running jobs.
//
// A single monitor goroutine polls job records on a fixed interval. Each
// record carries a consumed flag that is flipped with a compare-and-swap
// before its outcome is handed to the sink, so a job that completes in the
// same window the hang detector fires is still delivered exactly once.
// Records are removed only after the sink returns, which makes the
// concurrency bound cover bookkeeping as well as execution.
package jobpool
