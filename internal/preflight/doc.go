// Package preflight provides readiness checks for the directories, disk
// space, external tools, and catalog database that Baler depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before touching any item. A failed check
//     aborts the run so no status ever changes on a host that cannot
//     finish the work it starts.
//   - The CLI "baler status" command uses the individual check functions
//     to display host readiness.
//
// Disk space is sized against the largest pending item, not just the
// configured floor: staging must hold an original and its transcoded
// output at the same time.
package preflight
