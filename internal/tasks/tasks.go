// package tasks implements the reconciliation of remote playlists with the local music library.
//
// The core abstraction is [PlaylistEngine], which resolves, diffs, downloads, renames and persists
// each playlist in turn. Operations emit progress updates via channels for non-blocking status reporting.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/ThomasLachaux/youtube-synchronize/internal/library"
	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

// Catalog lists the remote state of a playlist.
type Catalog interface {
	ResolveSlug(ctx context.Context, playlistID string) (string, error)
	ListItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error)
}

// IndexStore loads and replaces the persisted index of a playlist.
type IndexStore interface {
	Load(slug string) (models.PlaylistIndex, error)
	Save(slug string, items models.PlaylistIndex) error
}

// Inventory inspects and renames the files of a playlist folder.
type Inventory interface {
	Path(slug string) string
	ListStoredTitles(slug string) (map[string]struct{}, error)
	Rename(slug string, moves ...library.Move) error
}

// Fetcher downloads the audio of one remote item into a folder.
type Fetcher interface {
	Fetch(ctx context.Context, remoteID, folder string) error
}

// RunRecorder keeps an audit trail of runs. Its failures are logged and never abort a run.
type RunRecorder interface {
	Start(ctx context.Context, dryRun bool) (*models.Run, error)
	RecordPlaylist(ctx context.Context, pr *models.PlaylistRun) error
	Finish(ctx context.Context, run *models.Run, runErr error) error
}

// PlaylistResult contains what a playlist pass found and did.
type PlaylistResult struct {
	PlaylistID   string
	Slug         string
	LiveCount    int
	Plan         Plan
	Items        models.PlaylistIndex  // Live items as persisted, after the duplicate policy
	Downloaded   []string              // Ids downloaded during this pass
	Renamed      []Rename              // Renames applied during this pass
	Untracked    []string              // Stored names on disk with no live item
	MissingFiles []models.PlaylistItem // Previously indexed live items whose file is gone
	DryRun       bool
	Persisted    bool
}

// OrphanCount is the number of orphan conditions reported for the playlist.
func (r *PlaylistResult) OrphanCount() int {
	return len(r.Plan.Removed) + len(r.Untracked) + len(r.MissingFiles)
}

// DuplicateCount is the number of duplicate conditions reported for the playlist.
func (r *PlaylistResult) DuplicateCount() int {
	return len(r.Plan.DuplicateIDs) + len(r.Plan.DuplicateNames)
}

// RunResult contains all playlist results of a run, in configured order.
type RunResult struct {
	RunID           string
	DryRun          bool
	StartedAt       time.Time
	FinishedAt      time.Time
	Playlists       []*PlaylistResult
	CrossDuplicates []CrossDuplicate
	Err             error
}

// EngineOpts holds the collaborators and policies of a [PlaylistEngine].
type EngineOpts struct {
	Catalog         Catalog
	Index           IndexStore
	Inventory       Inventory
	Fetcher         Fetcher
	Recorder        RunRecorder // Optional
	Logger          *log.Logger
	OrphanPolicy    string
	DuplicatePolicy string
	DownloadRetries int
	DryRun          bool
}

// PlaylistEngine reconciles playlists one at a time.
type PlaylistEngine struct {
	catalog         Catalog
	index           IndexStore
	inventory       Inventory
	fetcher         Fetcher
	recorder        RunRecorder
	logger          *log.Logger
	orphanPolicy    string
	duplicatePolicy string
	downloadRetries int
	dryRun          bool
	newBackOff      func() backoff.BackOff
	now             func() time.Time
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided collaborators.
func NewPlaylistEngine(opts EngineOpts) *PlaylistEngine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	orphans := opts.OrphanPolicy
	if orphans == "" {
		orphans = shared.OrphanPolicyLenient
	}
	duplicates := opts.DuplicatePolicy
	if duplicates == "" {
		duplicates = shared.DuplicatePolicyWarn
	}

	return &PlaylistEngine{
		catalog:         opts.Catalog,
		index:           opts.Index,
		inventory:       opts.Inventory,
		fetcher:         opts.Fetcher,
		recorder:        opts.Recorder,
		logger:          logger,
		orphanPolicy:    orphans,
		duplicatePolicy: duplicates,
		downloadRetries: max(opts.DownloadRetries, 0),
		dryRun:          opts.DryRun,
		newBackOff:      func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		now:             time.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run synchronizes every playlist in order. The first failing playlist aborts the run.
//
// The returned result holds the playlists processed so far, also when an error is returned.
func (e *PlaylistEngine) Run(ctx context.Context, playlistIDs []string, progress chan<- ProgressUpdate) (*RunResult, error) {
	result := &RunResult{DryRun: e.dryRun, StartedAt: e.now()}
	run := e.startRecord(ctx)
	if run != nil {
		result.RunID = run.ID
	}

	for i, playlistID := range playlistIDs {
		pr, err := e.SyncPlaylist(ctx, playlistID, progress)
		if pr != nil {
			result.Playlists = append(result.Playlists, pr)
		}
		e.recordPlaylist(ctx, run, i, playlistID, pr, err)

		if err != nil {
			result.Err = fmt.Errorf("playlist %s: %w", playlistID, err)
			result.FinishedAt = e.now()
			e.finishRecord(ctx, run, result.Err)
			return result, result.Err
		}
	}

	result.CrossDuplicates = CrossPlaylistDuplicates(result.Playlists)
	if len(result.CrossDuplicates) > 0 {
		e.logger.Warn("Duplicate musics exists between playlists !")
		for _, dup := range result.CrossDuplicates {
			e.logger.Warn("Duplicate", "name", dup.Name, "playlists", dup.Slugs)
		}
	}

	result.FinishedAt = e.now()
	e.finishRecord(ctx, run, nil)
	return result, nil
}

// SyncPlaylist reconciles a single playlist.
//
// Downloads run one after the other and the first failure aborts the pass, as does a failed
// rename or, under the strict orphan policy, a missing file. The index is written only when
// every step succeeded, so an aborted pass leaves the previous index untouched.
func (e *PlaylistEngine) SyncPlaylist(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*PlaylistResult, error) {
	result := &PlaylistResult{PlaylistID: playlistID, DryRun: e.dryRun}

	e.sendProgress(progress, resolveUpdate(playlistID))
	slug, err := e.catalog.ResolveSlug(ctx, playlistID)
	if err != nil {
		return result, fmt.Errorf("failed to resolve playlist: %w", err)
	}
	result.Slug = slug
	logger := shared.WithLogger(e.logger, "playlist", slug)

	e.sendProgress(progress, listUpdate(playlistID, slug))
	live, err := e.catalog.ListItems(ctx, playlistID)
	if err != nil {
		return result, fmt.Errorf("failed to list items: %w", err)
	}
	result.LiveCount = len(live)

	stored, err := e.index.Load(slug)
	if err != nil {
		return result, err
	}

	plan := BuildPlan(stored, live)
	result.Plan = plan
	result.Items = models.PlaylistIndex(live)
	if e.duplicatePolicy == shared.DuplicatePolicyDedupe {
		result.Items = Dedupe(result.Items)
	}

	e.sendProgress(progress, planUpdate(playlistID, plan, len(live)))
	logger.Info("New videos to download", "count", len(plan.New), "live", len(live), "stored", len(stored))
	e.reportDuplicates(logger, plan)

	if e.dryRun {
		for _, item := range plan.New {
			logger.Info("Would download", "id", item.ID, "title", item.Title)
		}
		for _, r := range plan.Renames {
			logger.Info("Would rename", "id", r.ID, "from", r.From, "to", r.To)
		}
		e.sendProgress(progress, verifyUpdate(playlistID, slug))
		return result, e.verify(logger, slug, stored, plan, result)
	}

	folder := e.inventory.Path(slug)
	for i, item := range plan.New {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("interrupted before downloading %s: %w", item.ID, err)
		}
		e.sendProgress(progress, downloadUpdate(playlistID, i+1, len(plan.New), item))
		if err := e.download(ctx, logger, item, folder); err != nil {
			return result, err
		}
		result.Downloaded = append(result.Downloaded, item.ID)
	}

	if len(plan.Renames) > 0 {
		moves := make([]library.Move, 0, len(plan.Renames))
		for i, r := range plan.Renames {
			e.sendProgress(progress, renameUpdate(playlistID, i+1, len(plan.Renames), r))
			moves = append(moves, library.Move{From: r.From, To: r.To})
		}
		if err := e.inventory.Rename(slug, moves...); err != nil {
			return result, err
		}
		result.Renamed = plan.Renames
	}

	e.sendProgress(progress, verifyUpdate(playlistID, slug))
	if err := e.verify(logger, slug, stored, plan, result); err != nil {
		return result, err
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("interrupted before saving the index: %w", err)
	}
	e.sendProgress(progress, persistUpdate(playlistID, slug, len(result.Items)))
	if err := e.index.Save(slug, result.Items); err != nil {
		return result, err
	}
	result.Persisted = true

	logger.Info("Playlist synchronized", "downloaded", len(result.Downloaded), "renamed", len(result.Renamed))
	return result, nil
}

func (e *PlaylistEngine) download(ctx context.Context, logger *log.Logger, item models.PlaylistItem, folder string) error {
	attempt := 0
	op := func() error {
		attempt++
		err := e.fetcher.Fetch(ctx, item.ID, folder)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Retrying download", "id", item.ID, "attempt", attempt, "wait", wait, "error", err)
	}

	logger.Info("Downloading", "id", item.ID, "title", item.Title)
	policy := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), uint64(e.downloadRetries)), ctx)
	return backoff.RetryNotify(op, policy, notify)
}

// verify reports indexed items that left the playlist, files nobody lists anymore and
// previously downloaded items whose file is gone.
//
// In a dry run, pending renames have not happened yet, so files are expected under their old title.
func (e *PlaylistEngine) verify(logger *log.Logger, slug string, stored models.PlaylistIndex, plan Plan, result *PlaylistResult) error {
	for _, item := range plan.Removed {
		logger.Warn("Video was removed from the playlist", "id", item.ID, "title", item.Title)
	}

	onDisk, err := e.inventory.ListStoredTitles(slug)
	if err != nil {
		return fmt.Errorf("failed to list stored files: %w", err)
	}

	pending := make(map[string]string)
	if e.dryRun {
		for _, r := range plan.Renames {
			pending[r.ID] = r.From
		}
	}

	expected := make(map[string]struct{}, len(result.Items))
	storedIDs := make(map[string]struct{}, len(stored))
	for _, item := range stored {
		storedIDs[item.ID] = struct{}{}
	}

	for _, item := range Dedupe(result.Items) {
		title := item.Title
		if old, ok := pending[item.ID]; ok {
			title = old
		}
		name := library.StoredName(title)
		expected[name] = struct{}{}

		if _, indexed := storedIDs[item.ID]; !indexed {
			continue
		}
		if _, present := onDisk[name]; !present {
			result.MissingFiles = append(result.MissingFiles, item)
		}
	}

	names := make([]string, 0, len(onDisk))
	for name := range onDisk {
		if _, ok := expected[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	for _, name := range names {
		logger.Warn("Stored file is not in the playlist anymore", "file", name)
	}
	result.Untracked = names

	for _, item := range result.MissingFiles {
		if e.orphanPolicy == shared.OrphanPolicyStrict && !e.dryRun {
			return fmt.Errorf("%w: %s (%s) in %s", shared.ErrMissingFile, item.Title, item.ID, slug)
		}
		logger.Warn("Video was not found on disk", "id", item.ID, "title", item.Title)
	}
	return nil
}

func (e *PlaylistEngine) reportDuplicates(logger *log.Logger, plan Plan) {
	if len(plan.DuplicateIDs) == 0 && len(plan.DuplicateNames) == 0 {
		return
	}

	logger.Warn("Duplicate musics exists in the playlist !")
	for _, id := range plan.DuplicateIDs {
		if e.duplicatePolicy == shared.DuplicatePolicyDedupe {
			logger.Warn("Duplicate", "id", id, "action", "keeping first occurrence")
			continue
		}
		logger.Warn("Duplicate", "id", id)
	}
	for _, name := range plan.DuplicateNames {
		logger.Warn("Duplicate", "name", name)
	}
}

func (e *PlaylistEngine) startRecord(ctx context.Context) *models.Run {
	if e.recorder == nil {
		return nil
	}
	run, err := e.recorder.Start(context.WithoutCancel(ctx), e.dryRun)
	if err != nil {
		e.logger.Warn("Run history is unavailable", "error", err)
		return nil
	}
	return run
}

func (e *PlaylistEngine) recordPlaylist(ctx context.Context, run *models.Run, position int, playlistID string, pr *PlaylistResult, syncErr error) {
	if e.recorder == nil || run == nil {
		return
	}

	record := &models.PlaylistRun{
		RunID:      run.ID,
		Position:   position,
		PlaylistID: playlistID,
		Status:     models.RunStatusSucceeded,
	}
	if syncErr != nil {
		record.Status = models.RunStatusFailed
		record.Error = syncErr.Error()
	}
	if pr != nil {
		record.Slug = pr.Slug
		record.LiveCount = pr.LiveCount
		record.NewCount = len(pr.Plan.New)
		record.Downloaded = len(pr.Downloaded)
		record.Renamed = len(pr.Renamed)
		record.Removed = len(pr.Plan.Removed)
		record.Orphans = pr.OrphanCount()
		record.Duplicates = pr.DuplicateCount()
	}

	if err := e.recorder.RecordPlaylist(context.WithoutCancel(ctx), record); err != nil {
		e.logger.Warn("Failed to record playlist run", "playlist", playlistID, "error", err)
	}
}

func (e *PlaylistEngine) finishRecord(ctx context.Context, run *models.Run, runErr error) {
	if e.recorder == nil || run == nil {
		return
	}
	if err := e.recorder.Finish(context.WithoutCancel(ctx), run, runErr); err != nil {
		e.logger.Warn("Failed to finish run record", "error", err)
	}
}

// IsInterrupted reports whether err comes from a cancelled or expired run.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
