// package models defines the data model for the playlist synchronizer
package models

import (
	"time"
)

// PlaylistItem is a single video of a remote playlist.
type PlaylistItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PlaylistIndex is the ordered snapshot of a playlist as it was last synchronized.
type PlaylistIndex []PlaylistItem

// IDs returns the remote ids of the index in order.
func (p PlaylistIndex) IDs() []string {
	ids := make([]string, len(p))
	for i, item := range p {
		ids[i] = item.ID
	}
	return ids
}

// ByID maps every remote id to its stored item. Later repeats of an id win.
func (p PlaylistIndex) ByID() map[string]PlaylistItem {
	m := make(map[string]PlaylistItem, len(p))
	for _, item := range p {
		m[item.ID] = item
	}
	return m
}

// RunStatus is the lifecycle state of a run or playlist run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is an audit record of one synchronizer invocation.
type Run struct {
	ID         string        `json:"id"`
	Sequence   int           `json:"sequence"`
	Status     RunStatus     `json:"status"`
	Error      string        `json:"error,omitempty"`
	DryRun     bool          `json:"dry_run"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Playlists  []PlaylistRun `json:"playlists,omitempty"`
}

// Duration returns the wall time of a finished run, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PlaylistRun records what happened to a single playlist during a run.
type PlaylistRun struct {
	RunID      string    `json:"run_id"`
	Position   int       `json:"position"`
	PlaylistID string    `json:"playlist_id"`
	Slug       string    `json:"slug"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	LiveCount  int       `json:"live"`
	NewCount   int       `json:"new"`
	Downloaded int       `json:"downloaded"`
	Renamed    int       `json:"renamed"`
	Removed    int       `json:"removed"`
	Orphans    int       `json:"orphans"`
	Duplicates int       `json:"duplicates"`
	RecordedAt time.Time `json:"recorded_at"`
}
