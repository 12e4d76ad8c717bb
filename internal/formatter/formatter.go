// package formatter renders run summaries and the run history (plain text, Markdown, JSON, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
	"github.com/ThomasLachaux/youtube-synchronize/internal/tasks"
	"github.com/ThomasLachaux/youtube-synchronize/internal/ui"
)

const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// SummaryFormats lists the formats accepted by [WriteSummary].
var SummaryFormats = []string{FormatText, FormatJSON, FormatMarkdown}

// HistoryFormats lists the formats accepted by [WriteHistory].
var HistoryFormats = []string{FormatText, FormatJSON, FormatCSV}

// WriteSummary renders the outcome of a run to w.
//
// A nil palette renders uncolored text.
func WriteSummary(w io.Writer, result *tasks.RunResult, format string, palette *ui.Palette) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatText, "":
		data = SummaryToText(result, orPlain(palette))
	case FormatMarkdown:
		data = SummaryToMarkdown(result)
	case FormatJSON:
		data, err = SummaryToJSON(result)
	default:
		return fmt.Errorf("%w: unknown summary format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// SummaryToText renders a run as styled terminal text.
func SummaryToText(result *tasks.RunResult, palette *ui.Palette) []byte {
	var buf bytes.Buffer

	title := "Synchronization summary"
	if result.DryRun {
		title += " (dry run)"
	}
	buf.WriteString(palette.Title(title) + "\n\n")

	for _, pr := range result.Playlists {
		fmt.Fprintf(&buf, "%s (%s)\n", palette.Title(pr.Slug), pr.PlaylistID)
		fmt.Fprintf(&buf, "  %s\n", counts(pr))

		for _, item := range downloads(pr) {
			fmt.Fprintf(&buf, "  %s %s\n", palette.OK("+"), item.Title)
		}
		for _, r := range renames(pr) {
			fmt.Fprintf(&buf, "  %s %s -> %s\n", palette.OK("~"), r.From, r.To)
		}
		for _, item := range pr.Plan.Removed {
			fmt.Fprintf(&buf, "  %s %s %s\n", palette.Warn("-"), item.Title, palette.Help("(removed from playlist)"))
		}
		for _, name := range pr.Untracked {
			fmt.Fprintf(&buf, "  %s %s %s\n", palette.Warn("?"), name, palette.Help("(not in playlist)"))
		}
		for _, item := range pr.MissingFiles {
			fmt.Fprintf(&buf, "  %s %s %s\n", palette.Warn("!"), item.Title, palette.Help("(missing on disk)"))
		}
		for _, id := range pr.Plan.DuplicateIDs {
			fmt.Fprintf(&buf, "  %s %s %s\n", palette.Warn("="), id, palette.Help("(listed more than once)"))
		}
		for _, name := range pr.Plan.DuplicateNames {
			fmt.Fprintf(&buf, "  %s %s %s\n", palette.Warn("="), name, palette.Help("(shared by several videos)"))
		}
		buf.WriteString("\n")
	}

	if len(result.CrossDuplicates) > 0 {
		buf.WriteString(palette.Warn("Duplicates between playlists") + "\n")
		for _, dup := range result.CrossDuplicates {
			fmt.Fprintf(&buf, "  %s: %s\n", dup.Name, strings.Join(dup.Slugs, ", "))
		}
		buf.WriteString("\n")
	}

	if result.Err != nil {
		fmt.Fprintf(&buf, "%s %s\n", palette.Err("Failed:"), result.Err)
	} else {
		fmt.Fprintf(&buf, "%s %d playlist(s) in %s\n", palette.OK("Done:"), len(result.Playlists), elapsed(result))
	}
	return buf.Bytes()
}

// SummaryToMarkdown renders a run as a Markdown document.
func SummaryToMarkdown(result *tasks.RunResult) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Synchronization summary\n\n")
	if result.RunID != "" {
		fmt.Fprintf(&buf, "**Run**: %s\n", result.RunID)
	}
	fmt.Fprintf(&buf, "**Dry run**: %t\n", result.DryRun)
	fmt.Fprintf(&buf, "**Duration**: %s\n", elapsed(result))
	if result.Err != nil {
		fmt.Fprintf(&buf, "**Error**: %s\n", result.Err)
	}
	buf.WriteString("\n")

	buf.WriteString("| Playlist | Live | New | Downloaded | Renamed | Removed | Orphans | Duplicates |\n")
	buf.WriteString("|----------|------|-----|------------|---------|---------|---------|------------|\n")
	for _, pr := range result.Playlists {
		fmt.Fprintf(&buf, "| %s | %d | %d | %d | %d | %d | %d | %d |\n",
			pr.Slug, pr.LiveCount, len(pr.Plan.New), len(pr.Downloaded), len(pr.Renamed),
			len(pr.Plan.Removed), pr.OrphanCount(), pr.DuplicateCount())
	}

	for _, pr := range result.Playlists {
		items := downloads(pr)
		moves := renames(pr)
		if len(items) == 0 && len(moves) == 0 {
			continue
		}
		downloaded, renamed := "Downloaded", "Renamed"
		if pr.DryRun {
			downloaded, renamed = "To download", "To rename"
		}
		fmt.Fprintf(&buf, "\n## %s\n\n", pr.Slug)
		for _, item := range items {
			fmt.Fprintf(&buf, "- %s: %s\n", downloaded, item.Title)
		}
		for _, r := range moves {
			fmt.Fprintf(&buf, "- %s: %s → %s\n", renamed, r.From, r.To)
		}
	}

	if len(result.CrossDuplicates) > 0 {
		buf.WriteString("\n## Duplicates between playlists\n\n")
		for _, dup := range result.CrossDuplicates {
			fmt.Fprintf(&buf, "- %s (%s)\n", dup.Name, strings.Join(dup.Slugs, ", "))
		}
	}
	return buf.Bytes()
}

type renameJSON struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

type playlistJSON struct {
	PlaylistID     string                `json:"playlist_id"`
	Slug           string                `json:"slug"`
	Live           int                   `json:"live"`
	New            []models.PlaylistItem `json:"new"`
	Downloaded     []string              `json:"downloaded"`
	Renamed        []renameJSON          `json:"renamed"`
	Removed        []models.PlaylistItem `json:"removed"`
	Untracked      []string              `json:"untracked"`
	MissingFiles   []models.PlaylistItem `json:"missing_files"`
	DuplicateIDs   []string              `json:"duplicate_ids"`
	DuplicateNames []string              `json:"duplicate_names"`
	Persisted      bool                  `json:"persisted"`
}

type crossDuplicateJSON struct {
	Name      string   `json:"name"`
	Playlists []string `json:"playlists"`
}

type summaryJSON struct {
	RunID           string               `json:"run_id,omitempty"`
	DryRun          bool                 `json:"dry_run"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
	Error           string               `json:"error,omitempty"`
	Playlists       []playlistJSON       `json:"playlists"`
	CrossDuplicates []crossDuplicateJSON `json:"cross_duplicates"`
}

// SummaryToJSON renders a run as indented JSON. Empty lists are written as [].
func SummaryToJSON(result *tasks.RunResult) ([]byte, error) {
	out := summaryJSON{
		RunID:           result.RunID,
		DryRun:          result.DryRun,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		Playlists:       []playlistJSON{},
		CrossDuplicates: []crossDuplicateJSON{},
	}
	if result.Err != nil {
		out.Error = result.Err.Error()
	}

	for _, pr := range result.Playlists {
		p := playlistJSON{
			PlaylistID:     pr.PlaylistID,
			Slug:           pr.Slug,
			Live:           pr.LiveCount,
			New:            orEmpty(pr.Plan.New),
			Downloaded:     orEmpty(pr.Downloaded),
			Renamed:        []renameJSON{},
			Removed:        orEmpty(pr.Plan.Removed),
			Untracked:      orEmpty(pr.Untracked),
			MissingFiles:   orEmpty(pr.MissingFiles),
			DuplicateIDs:   orEmpty(pr.Plan.DuplicateIDs),
			DuplicateNames: orEmpty(pr.Plan.DuplicateNames),
			Persisted:      pr.Persisted,
		}
		for _, r := range pr.Renamed {
			p.Renamed = append(p.Renamed, renameJSON(r))
		}
		out.Playlists = append(out.Playlists, p)
	}
	for _, dup := range result.CrossDuplicates {
		out.CrossDuplicates = append(out.CrossDuplicates, crossDuplicateJSON{Name: dup.Name, Playlists: dup.Slugs})
	}

	data, err := shared.MarshalJSON(out, true)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteHistory renders past runs to w, most recent first as given.
func WriteHistory(w io.Writer, runs []*models.Run, format string, palette *ui.Palette) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatText, "":
		data = HistoryToText(runs, orPlain(palette))
	case FormatCSV:
		data, err = HistoryToCSV(runs)
	case FormatJSON:
		if runs == nil {
			runs = []*models.Run{}
		}
		data, err = shared.MarshalJSON(runs, true)
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: unknown history format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// HistoryToText renders one line per run followed by its playlists.
func HistoryToText(runs []*models.Run, palette *ui.Palette) []byte {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString(palette.Help("No runs recorded yet") + "\n")
		return buf.Bytes()
	}

	for _, run := range runs {
		mode := ""
		if run.DryRun {
			mode = " " + palette.Help("(dry run)")
		}
		fmt.Fprintf(&buf, "#%d %s %s%s %s\n",
			run.Sequence, run.StartedAt.Format(time.DateTime), palette.Status(string(run.Status)), mode,
			palette.Help(run.Duration().Round(time.Millisecond).String()))
		if run.Error != "" {
			fmt.Fprintf(&buf, "  %s\n", palette.Err(run.Error))
		}
		for _, pr := range run.Playlists {
			fmt.Fprintf(&buf, "  %s %s: live %d, new %d, downloaded %d, renamed %d, removed %d, orphans %d, duplicates %d\n",
				palette.Status(string(pr.Status)), nameOf(pr), pr.LiveCount, pr.NewCount, pr.Downloaded,
				pr.Renamed, pr.Removed, pr.Orphans, pr.Duplicates)
		}
	}
	return buf.Bytes()
}

// HistoryToCSV writes one row per playlist run with the columns of [historyHeaders].
func HistoryToCSV(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(historyHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		for _, pr := range run.Playlists {
			record := []string{
				run.ID,
				strconv.Itoa(run.Sequence),
				run.StartedAt.UTC().Format(time.RFC3339),
				strconv.FormatBool(run.DryRun),
				pr.PlaylistID,
				pr.Slug,
				string(pr.Status),
				strconv.Itoa(pr.LiveCount),
				strconv.Itoa(pr.NewCount),
				strconv.Itoa(pr.Downloaded),
				strconv.Itoa(pr.Renamed),
				strconv.Itoa(pr.Removed),
				strconv.Itoa(pr.Orphans),
				strconv.Itoa(pr.Duplicates),
				pr.Error,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

var historyHeaders = []string{
	"Run", "Sequence", "Started", "DryRun", "Playlist", "Slug", "Status",
	"Live", "New", "Downloaded", "Renamed", "Removed", "Orphans", "Duplicates", "Error",
}

// downloads returns the items fetched during the pass, or the pending ones for a dry run.
func downloads(pr *tasks.PlaylistResult) []models.PlaylistItem {
	if pr.DryRun {
		return pr.Plan.New
	}
	done := make(map[string]struct{}, len(pr.Downloaded))
	for _, id := range pr.Downloaded {
		done[id] = struct{}{}
	}
	var items []models.PlaylistItem
	for _, item := range pr.Plan.New {
		if _, ok := done[item.ID]; ok {
			items = append(items, item)
		}
	}
	return items
}

func renames(pr *tasks.PlaylistResult) []tasks.Rename {
	if pr.DryRun {
		return pr.Plan.Renames
	}
	return pr.Renamed
}

func counts(pr *tasks.PlaylistResult) string {
	return fmt.Sprintf("live %d, new %d, downloaded %d, renamed %d, removed %d, orphans %d, duplicates %d",
		pr.LiveCount, len(pr.Plan.New), len(pr.Downloaded), len(pr.Renamed),
		len(pr.Plan.Removed), pr.OrphanCount(), pr.DuplicateCount())
}

func elapsed(result *tasks.RunResult) time.Duration {
	if result.FinishedAt.IsZero() {
		return 0
	}
	return result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)
}

func nameOf(pr models.PlaylistRun) string {
	if pr.Slug != "" {
		return pr.Slug
	}
	return pr.PlaylistID
}

func orPlain(p *ui.Palette) *ui.Palette {
	if p == nil {
		return ui.PlainPalette()
	}
	return p
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
