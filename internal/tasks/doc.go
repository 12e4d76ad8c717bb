// Package tasks reconciles remote playlists with the local music library, with real-time progress reporting.
//
// # Reconciliation
//
// [BuildPlan] is a pure diff of the stored index against the live catalog:
//   - new items are live ids missing from the index, in live order
//   - renames are ids present on both sides whose title changed (unknown stored titles never rename)
//   - removed items are indexed ids no longer listed
//   - duplicates are repeated ids, or different ids sharing a stored file name
//
// [PlaylistEngine.SyncPlaylist] applies a plan to one playlist:
//
//  1. Resolve the slug, list live items, load the stored index
//  2. Download new items one at a time, retrying each with backoff when configured
//  3. Apply renames inside the playlist folder
//  4. Report removed items, untracked files and missing files (fatal under the strict orphan policy)
//  5. Report duplicates (the dedupe policy keeps the first occurrence of a repeated id)
//  6. Replace the index with the live list
//
// Any failure in steps 2 to 4 returns before step 6, so the previous index stays intact and the
// next run resumes from the same set of new items. The index is also left alone once the context is cancelled.
//
// [PlaylistEngine.Run] processes playlists in configured order and stops at the first failure.
// After a complete run it reports stored file names listed by more than one playlist.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// The optional [RunRecorder] receives the start, per-playlist outcome and end of a run.
// Recording errors are logged and never change the outcome of a run.
//
// # Dry Runs
//
// With [EngineOpts.DryRun] set, plans and diagnostics are computed and logged but nothing is
// downloaded, renamed or persisted.
package tasks
