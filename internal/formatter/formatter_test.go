package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
	"github.com/ThomasLachaux/youtube-synchronize/internal/tasks"
	th "github.com/ThomasLachaux/youtube-synchronize/internal/testing"
	"github.com/ThomasLachaux/youtube-synchronize/internal/ui"
)

var started = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleResult() *tasks.RunResult {
	return &tasks.RunResult{
		RunID:      "run-42",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Playlists: []*tasks.PlaylistResult{
			{
				PlaylistID: "PL1",
				Slug:       "road-trip",
				LiveCount:  3,
				Plan: tasks.Plan{
					New:          []models.PlaylistItem{{ID: "b", Title: "Song B"}},
					Removed:      []models.PlaylistItem{{ID: "z", Title: "Gone"}},
					DuplicateIDs: []string{"a"},
				},
				Downloaded: []string{"b"},
				Renamed:    []tasks.Rename{{ID: "a", From: "Old", To: "New"}},
				Untracked:  []string{"Stray"},
				Persisted:  true,
			},
		},
		CrossDuplicates: []tasks.CrossDuplicate{{Name: "Song B", Slugs: []string{"road-trip", "chill"}}},
	}
}

func TestSummary(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		out := string(SummaryToText(sampleResult(), ui.PlainPalette()))

		for _, want := range []string{
			"Synchronization summary\n",
			"road-trip (PL1)",
			"live 3, new 1, downloaded 1, renamed 1, removed 1, orphans 2, duplicates 1",
			"+ Song B",
			"~ Old -> New",
			"- Gone (removed from playlist)",
			"? Stray (not in playlist)",
			"= a (listed more than once)",
			"Song B: road-trip, chill",
			"Done: 1 playlist(s) in 1.5s",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("text summary missing %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("Text for a failed dry run", func(t *testing.T) {
		result := sampleResult()
		result.DryRun = true
		result.Playlists[0].DryRun = true
		result.Playlists[0].Downloaded = nil
		result.Playlists[0].Renamed = nil
		result.Playlists[0].Plan.Renames = []tasks.Rename{{ID: "a", From: "Before", To: "After"}}
		result.Err = errors.New("playlist PL2: boom")

		out := string(SummaryToText(result, ui.PlainPalette()))
		for _, want := range []string{"(dry run)", "+ Song B", "~ Before -> After", "Failed: playlist PL2: boom"} {
			if !strings.Contains(out, want) {
				t.Errorf("text summary missing %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		out := string(SummaryToMarkdown(sampleResult()))

		for _, want := range []string{
			"# Synchronization summary",
			"**Run**: run-42",
			"| road-trip | 3 | 1 | 1 | 1 | 1 | 2 | 1 |",
			"## road-trip",
			"- Downloaded: Song B",
			"- Renamed: Old → New",
			"- Song B (road-trip, chill)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown summary missing %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := SummaryToJSON(sampleResult())
		if err != nil {
			t.Fatalf("SummaryToJSON failed: %v", err)
		}

		var decoded summaryJSON
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.RunID != "run-42" || len(decoded.Playlists) != 1 {
			t.Fatalf("unexpected summary: %+v", decoded)
		}
		p := decoded.Playlists[0]
		if p.Slug != "road-trip" || !p.Persisted || len(p.Renamed) != 1 || p.Renamed[0].To != "New" {
			t.Errorf("unexpected playlist: %+v", p)
		}
		if !strings.Contains(string(data), `"missing_files": []`) {
			t.Errorf("empty lists should be encoded as [], got:\n%s", data)
		}
		if decoded.CrossDuplicates[0].Playlists[1] != "chill" {
			t.Errorf("unexpected cross duplicates: %+v", decoded.CrossDuplicates)
		}
	})

	t.Run("JSON with error", func(t *testing.T) {
		result := &tasks.RunResult{Err: errors.New("boom")}
		data, err := SummaryToJSON(result)
		if err != nil {
			t.Fatalf("SummaryToJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"error": "boom"`) || !strings.Contains(string(data), `"playlists": []`) {
			t.Errorf("unexpected JSON: %s", data)
		}
	})
}

func TestWriteSummary(t *testing.T) {
	for _, format := range append(SummaryFormats, "") {
		t.Run("format "+format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteSummary(&buf, sampleResult(), format, nil); err != nil {
				t.Fatalf("WriteSummary failed: %v", err)
			}
			if buf.Len() == 0 {
				t.Error("expected output")
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		err := WriteSummary(&bytes.Buffer{}, sampleResult(), "yaml", nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("write failure", func(t *testing.T) {
		if err := WriteSummary(&th.FWriter{}, sampleResult(), FormatText, nil); err == nil {
			t.Error("expected write error")
		}
	})
}

func sampleRuns() []*models.Run {
	finished := started.Add(2 * time.Second)
	return []*models.Run{
		{
			ID:         "run-2",
			Sequence:   2,
			Status:     models.RunStatusFailed,
			Error:      "playlist PL2: download failed",
			StartedAt:  started,
			FinishedAt: &finished,
			Playlists: []models.PlaylistRun{
				{PlaylistID: "PL1", Slug: "road-trip", Status: models.RunStatusSucceeded, LiveCount: 3, NewCount: 1, Downloaded: 1},
				{PlaylistID: "PL2", Status: models.RunStatusFailed, Error: "download failed, exit 1"},
			},
		},
		{ID: "run-1", Sequence: 1, Status: models.RunStatusSucceeded, DryRun: true, StartedAt: started.Add(-time.Hour)},
	}
}

func TestHistory(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		out := string(HistoryToText(sampleRuns(), ui.PlainPalette()))

		for _, want := range []string{
			"#2 2026-03-01 10:00:00 failed 2s",
			"  playlist PL2: download failed",
			"  succeeded road-trip: live 3, new 1, downloaded 1",
			"  failed PL2: live 0",
			"#1 2026-03-01 09:00:00 succeeded (dry run) 0s",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("history missing %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("Text without runs", func(t *testing.T) {
		out := string(HistoryToText(nil, ui.PlainPalette()))
		if out != "No runs recorded yet\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("CSV", func(t *testing.T) {
		data, err := HistoryToCSV(sampleRuns())
		if err != nil {
			t.Fatalf("HistoryToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d:\n%s", len(lines), data)
		}
		if !strings.HasPrefix(lines[0], "Run,Sequence,Started") {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if !strings.Contains(lines[2], `"download failed, exit 1"`) {
			t.Errorf("CSV field with comma should be quoted, got: %s", lines[2])
		}
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, sampleRuns(), FormatJSON, nil); err != nil {
			t.Fatalf("WriteHistory failed: %v", err)
		}
		var decoded []models.Run
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0].Playlists[0].Slug != "road-trip" {
			t.Errorf("unexpected runs: %+v", decoded)
		}
	})

	t.Run("JSON without runs", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, nil, FormatJSON, nil); err != nil {
			t.Fatalf("WriteHistory failed: %v", err)
		}
		if buf.String() != "[]\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("errors", func(t *testing.T) {
		if err := WriteHistory(&bytes.Buffer{}, sampleRuns(), "xml", nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}

		w := th.NewLimitedWriter(0, 0, &bytes.Buffer{})
		if err := WriteHistory(&w, sampleRuns(), FormatCSV, nil); err == nil {
			t.Error("expected write error")
		}
	})
}
