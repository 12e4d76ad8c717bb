package tasks

import (
	"fmt"

	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
)

// ProgressUpdate represents a progress event during a synchronization run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase    Phase  // Operation phase
	Playlist string // Playlist id being processed
	Step     int    // Current step number within phase
	Total    int    // Total steps in this phase
	Message  string // Human-readable message for display
	Data     any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolvePlaylist Phase = iota
	ListItems
	DownloadItems
	RenameItems
	VerifyLibrary
	PersistIndex
)

func (p Phase) String() string {
	switch p {
	case ResolvePlaylist:
		return "resolve"
	case ListItems:
		return "list"
	case DownloadItems:
		return "download"
	case RenameItems:
		return "rename"
	case VerifyLibrary:
		return "verify"
	case PersistIndex:
		return "persist"
	default:
		return ""
	}
}

func resolveUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    ResolvePlaylist,
		Playlist: playlistID,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Resolving playlist %s...", playlistID),
	}
}

func listUpdate(playlistID, slug string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    ListItems,
		Playlist: playlistID,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Fetching items of %s...", slug),
	}
}

func planUpdate(playlistID string, plan Plan, live int) ProgressUpdate {
	return ProgressUpdate{
		Phase:    ListItems,
		Playlist: playlistID,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("%d live items, %d new, %d renamed", live, len(plan.New), len(plan.Renames)),
		Data:     plan,
	}
}

func downloadUpdate(playlistID string, step, total int, item models.PlaylistItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:    DownloadItems,
		Playlist: playlistID,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("[%d/%d] Downloading %s (%s)", step, total, item.Title, item.ID),
	}
}

func renameUpdate(playlistID string, step, total int, r Rename) ProgressUpdate {
	return ProgressUpdate{
		Phase:    RenameItems,
		Playlist: playlistID,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("[%d/%d] Renaming %s to %s", step, total, r.From, r.To),
	}
}

func verifyUpdate(playlistID, slug string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    VerifyLibrary,
		Playlist: playlistID,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Checking files of %s...", slug),
	}
}

func persistUpdate(playlistID, slug string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:    PersistIndex,
		Playlist: playlistID,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Saving index of %s (%d items)", slug, count),
	}
}
