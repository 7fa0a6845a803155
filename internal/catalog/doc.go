// Package catalog is Baler's persistent record of every media item it has
// discovered, backed by a SQLite database in the log directory.
//
// Each row walks a fixed status progression from cataloged to completed.
// Advance performs every step as a single UPDATE guarded by the legal
// predecessor statuses, so a stale writer loses the race and receives a
// TransitionError instead of rewinding someone else's progress. Rows also
// accumulate the staging, archive, and output paths plus content digests as
// stages finish, which is what allows an interrupted run to resume without
// redoing verified work.
//
// Completed and failed rows stay until an operator clears them with the
// catalog subcommands. The schema carries a version stamp; opening a
// database written by a different version fails with an explanation rather
// than migrating in place, because every item can be re-discovered from the
// remote store at the cost of reprocessing.
package catalog
