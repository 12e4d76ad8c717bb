package models

import (
	"testing"
	"time"
)

func TestPlaylistIndex(t *testing.T) {
	index := PlaylistIndex{
		{ID: "a", Title: "First"},
		{ID: "b", Title: "Second"},
		{ID: "a", Title: "Repeat"},
	}

	t.Run("IDs keeps order and repeats", func(t *testing.T) {
		ids := index.IDs()
		want := []string{"a", "b", "a"}
		if len(ids) != len(want) {
			t.Fatalf("expected %d ids, got %d", len(want), len(ids))
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
			}
		}
	})

	t.Run("ByID keeps the last repeat", func(t *testing.T) {
		m := index.ByID()
		if len(m) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(m))
		}
		if m["a"].Title != "Repeat" {
			t.Errorf("expected last title for a, got %q", m["a"].Title)
		}
	})
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	run := &Run{StartedAt: start}
	if run.Duration() != 0 {
		t.Errorf("running run should have zero duration")
	}

	end := start.Add(90 * time.Second)
	run.FinishedAt = &end
	if run.Duration() != 90*time.Second {
		t.Errorf("expected 90s, got %v", run.Duration())
	}
}
