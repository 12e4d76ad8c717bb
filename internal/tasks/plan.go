package tasks

import (
	"slices"

	"github.com/ThomasLachaux/youtube-synchronize/internal/library"
	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
)

// Rename is a title change of an already downloaded item.
type Rename struct {
	ID   string
	From string
	To   string
}

// Plan is the set of actions needed to bring a playlist folder in line with the live catalog.
type Plan struct {
	New            []models.PlaylistItem // Live items missing from the index, in live order, one per id
	Renames        []Rename              // Indexed items whose live title changed
	Removed        []models.PlaylistItem // Indexed items no longer listed
	DuplicateIDs   []string              // Ids listed more than once
	DuplicateNames []string              // Stored names shared by different live ids
}

// NewIDs returns the ids of the items to download.
func (p Plan) NewIDs() []string {
	return models.PlaylistIndex(p.New).IDs()
}

// Empty reports whether the plan has nothing to download or rename.
func (p Plan) Empty() bool {
	return len(p.New) == 0 && len(p.Renames) == 0
}

// BuildPlan diffs the stored index against the live items.
//
// New items are the live ids absent from the index. Renames are issued for ids present in
// both whose title differs, unless the stored title is unknown. Duplicates are only reported.
func BuildPlan(stored, live models.PlaylistIndex) Plan {
	var plan Plan

	storedByID := make(map[string]models.PlaylistItem, len(stored))
	for _, item := range stored {
		if _, ok := storedByID[item.ID]; !ok {
			storedByID[item.ID] = item
		}
	}

	liveByID := make(map[string]models.PlaylistItem, len(live))
	idsByName := make(map[string][]string)
	for _, item := range live {
		if _, seen := liveByID[item.ID]; seen {
			if !slices.Contains(plan.DuplicateIDs, item.ID) {
				plan.DuplicateIDs = append(plan.DuplicateIDs, item.ID)
			}
			continue
		}
		liveByID[item.ID] = item

		name := library.StoredName(item.Title)
		idsByName[name] = append(idsByName[name], item.ID)
		if len(idsByName[name]) == 2 {
			plan.DuplicateNames = append(plan.DuplicateNames, name)
		}

		if _, indexed := storedByID[item.ID]; !indexed {
			plan.New = append(plan.New, item)
		}
	}

	visited := make(map[string]struct{}, len(stored))
	for _, item := range stored {
		if _, done := visited[item.ID]; done {
			continue
		}
		visited[item.ID] = struct{}{}

		current, listed := liveByID[item.ID]
		if !listed {
			plan.Removed = append(plan.Removed, item)
			continue
		}
		if item.Title != "" && item.Title != current.Title {
			plan.Renames = append(plan.Renames, Rename{ID: item.ID, From: item.Title, To: current.Title})
		}
	}

	return plan
}

// Dedupe drops later repeats of the same id, keeping the first occurrence.
func Dedupe(items models.PlaylistIndex) models.PlaylistIndex {
	seen := make(map[string]struct{}, len(items))
	out := make(models.PlaylistIndex, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// CrossDuplicate is a stored name listed by more than one playlist.
type CrossDuplicate struct {
	Name  string
	Slugs []string
}

// CrossPlaylistDuplicates finds stored names that recur across different playlists.
func CrossPlaylistDuplicates(results []*PlaylistResult) []CrossDuplicate {
	slugsByName := make(map[string][]string)
	var order []string

	for _, result := range results {
		if result == nil {
			continue
		}
		for _, item := range result.Items {
			name := library.StoredName(item.Title)
			slugs := slugsByName[name]
			if slices.Contains(slugs, result.Slug) {
				continue
			}
			if len(slugs) == 0 {
				order = append(order, name)
			}
			slugsByName[name] = append(slugs, result.Slug)
		}
	}

	var dups []CrossDuplicate
	for _, name := range order {
		if slugs := slugsByName[name]; len(slugs) > 1 {
			dups = append(dups, CrossDuplicate{Name: name, Slugs: slugs})
		}
	}
	return dups
}
