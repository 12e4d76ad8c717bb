package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Start", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))

		run, err := repo.Start(ctx, true)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		if run.ID == "" {
			t.Error("run ID should be set")
		}
		if run.Sequence != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence)
		}
		if run.Status != models.RunStatusRunning || !run.DryRun {
			t.Errorf("unexpected run state: %+v", run)
		}
	})

	t.Run("Finish and Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		repo.now = func() time.Time { return fixed }

		run, err := repo.Start(ctx, false)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}

		records := []models.PlaylistRun{
			{RunID: run.ID, Position: 0, PlaylistID: "PL1", Slug: "mix", Status: models.RunStatusSucceeded, LiveCount: 10, NewCount: 2, Downloaded: 2, Renamed: 1},
			{RunID: run.ID, Position: 1, PlaylistID: "PL2", Slug: "other", Status: models.RunStatusFailed, Error: "download failed"},
		}
		for i := range records {
			if err := repo.RecordPlaylist(ctx, &records[i]); err != nil {
				t.Fatalf("failed to record playlist: %v", err)
			}
		}

		if err := repo.Finish(ctx, run, errors.New("download failed")); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		got, err := repo.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status != models.RunStatusFailed || got.Error != "download failed" {
			t.Errorf("unexpected status %s / %q", got.Status, got.Error)
		}
		if got.FinishedAt == nil || !got.FinishedAt.Equal(fixed) {
			t.Errorf("unexpected finished at %v", got.FinishedAt)
		}
		if !got.StartedAt.Equal(fixed) {
			t.Errorf("unexpected started at %v", got.StartedAt)
		}
		if len(got.Playlists) != 2 {
			t.Fatalf("expected 2 playlist runs, got %d", len(got.Playlists))
		}
		if got.Playlists[0].PlaylistID != "PL1" || got.Playlists[0].Downloaded != 2 || got.Playlists[0].Renamed != 1 {
			t.Errorf("unexpected first playlist run: %+v", got.Playlists[0])
		}
		if got.Playlists[1].Status != models.RunStatusFailed {
			t.Errorf("unexpected second playlist run: %+v", got.Playlists[1])
		}
	})

	t.Run("Finish success", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run, err := repo.Start(ctx, false)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		if err := repo.Finish(ctx, run, nil); err != nil {
			t.Fatalf("failed to finish: %v", err)
		}
		if run.Status != models.RunStatusSucceeded || run.FinishedAt == nil {
			t.Errorf("run should be finished: %+v", run)
		}
	})

	t.Run("Finish unknown run", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		err := repo.Finish(ctx, &models.Run{ID: "nope"}, nil)
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Get unknown run", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if _, err := repo.Get(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("List newest first with limit", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		for range 3 {
			if _, err := repo.Start(ctx, false); err != nil {
				t.Fatalf("failed to start run: %v", err)
			}
		}

		runs, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].Sequence != 3 || runs[1].Sequence != 2 {
			t.Errorf("unexpected order: %d, %d", runs[0].Sequence, runs[1].Sequence)
		}

		all, err := repo.List(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 runs, got %d", len(all))
		}
	})

	t.Run("RecordPlaylist requires a run", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		err := repo.RecordPlaylist(ctx, &models.PlaylistRun{RunID: "missing", PlaylistID: "PL", Status: models.RunStatusSucceeded})
		if err == nil {
			t.Error("expected foreign key violation")
		}
	})

	t.Run("closed database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)
		db.Close()

		if _, err := repo.Start(ctx, false); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.List(ctx, 1); err == nil {
			t.Error("expected error on closed database")
		}
	})
}
