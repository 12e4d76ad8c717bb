package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

// ErrRunNotFound is returned when a run id matches no row.
var ErrRunNotFound = errors.New("run not found")

// RunRepository stores the audit history of synchronization runs.
type RunRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db, now: time.Now}
}

// Start inserts a running [models.Run] with a generated ID and sequence.
func (r *RunRepository) Start(ctx context.Context, dryRun bool) (*models.Run, error) {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	run := &models.Run{
		ID:        shared.GenerateID(),
		Sequence:  sequence,
		Status:    models.RunStatusRunning,
		DryRun:    dryRun,
		StartedAt: r.now().UTC(),
	}

	query := `
		INSERT INTO runs (id, sequence, status, dry_run, started_at) VALUES (?, ?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, run.ID, run.Sequence, run.Status, run.DryRun, run.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// RecordPlaylist appends a playlist outcome to its run.
func (r *RunRepository) RecordPlaylist(ctx context.Context, pr *models.PlaylistRun) error {
	if pr.RecordedAt.IsZero() {
		pr.RecordedAt = r.now().UTC()
	}

	query := `
		INSERT INTO playlist_runs (
			run_id, position, playlist_id, slug, status, error,
			live_count, new_count, downloaded, renamed, removed, orphans, duplicates, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		pr.RunID, pr.Position, pr.PlaylistID, pr.Slug, pr.Status, pr.Error,
		pr.LiveCount, pr.NewCount, pr.Downloaded, pr.Renamed, pr.Removed, pr.Orphans, pr.Duplicates,
		pr.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist run: %w", err)
	}
	return nil
}

// Finish marks a run as succeeded, or failed with the text of runErr.
func (r *RunRepository) Finish(ctx context.Context, run *models.Run, runErr error) error {
	finished := r.now().UTC()
	run.FinishedAt = &finished
	run.Status = models.RunStatusSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
	}

	query := `
		UPDATE runs
		SET status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, run.Status, run.Error, finished, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

// Get retrieves a run by ID with its playlist outcomes.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	query := `
		SELECT id, sequence, status, error, dry_run, started_at, finished_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	playlists, err := r.playlistRuns(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Playlists = playlists
	return run, nil
}

// List returns the most recent runs first, with their playlist outcomes.
// A limit of zero or less returns every run.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `
		SELECT id, sequence, status, error, dry_run, started_at, finished_at
		FROM runs
		ORDER BY sequence DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, run := range runs {
		if run.Playlists, err = r.playlistRuns(ctx, run.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *RunRepository) playlistRuns(ctx context.Context, runID string) ([]models.PlaylistRun, error) {
	query := `
		SELECT run_id, position, playlist_id, slug, status, error,
			live_count, new_count, downloaded, renamed, removed, orphans, duplicates, recorded_at
		FROM playlist_runs
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist runs: %w", err)
	}
	defer rows.Close()

	var out []models.PlaylistRun
	for rows.Next() {
		var pr models.PlaylistRun
		err := rows.Scan(
			&pr.RunID, &pr.Position, &pr.PlaylistID, &pr.Slug, &pr.Status, &pr.Error,
			&pr.LiveCount, &pr.NewCount, &pr.Downloaded, &pr.Renamed, &pr.Removed, &pr.Orphans, &pr.Duplicates,
			&pr.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist run: %w", err)
		}
		out = append(out, pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run      models.Run
		finished sql.NullTime
	)
	if err := row.Scan(&run.ID, &run.Sequence, &run.Status, &run.Error, &run.DryRun, &run.StartedAt, &finished); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
