// Package repositories implements the persistence of the synchronizer.
//
// Key Implementations:
//   - [IndexStore] : The per-playlist JSON index, the only record of what has been downloaded.
//     Writes go through a temporary file and a rename so a crash never leaves a truncated index.
//   - [RunRepository] : SQLite audit history of runs and per-playlist outcomes.
//     It is written alongside the index and never read back by the reconciler.
//
// Sequence numbers provide stable, human-readable ordering (e.g. run #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
