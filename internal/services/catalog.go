package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/ThomasLachaux/youtube-synchronize/internal/models"
	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

// maxPageSize is the largest page and id batch the Data API accepts.
const maxPageSize = 50

// CatalogOptions configures a [CatalogService].
type CatalogOptions struct {
	APIKey            string
	RegionCode        string  // Region used to drop blocked videos, empty disables the lookup
	RequestsPerSecond float64 // Pacing of every API call, zero or less disables pacing
	MaxRetries        int     // Extra attempts for transient failures
	HTTPTimeout       time.Duration
}

// CatalogOptionsFromConfig maps the youtube section of the configuration.
func CatalogOptionsFromConfig(cfg shared.YouTubeConfig) CatalogOptions {
	return CatalogOptions{
		APIKey:            cfg.APIKey,
		RegionCode:        cfg.RegionCode,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxRetries:        cfg.MaxRetries,
		HTTPTimeout:       cfg.HTTPTimeout,
	}
}

// CatalogService reads playlist metadata and contents from the YouTube Data API v3.
type CatalogService struct {
	yt         *youtube.Service
	limiter    *rate.Limiter
	logger     *log.Logger
	regionCode string
	maxRetries int
	timeout    time.Duration
	newBackOff func() backoff.BackOff
}

// NewCatalogService creates a catalog client authenticated with the configured API key.
//
// Extra client options are applied last, which lets callers point the client to another endpoint.
func NewCatalogService(ctx context.Context, opts CatalogOptions, logger *log.Logger, clientOpts ...option.ClientOption) (*CatalogService, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	all := append([]option.ClientOption{option.WithAPIKey(opts.APIKey)}, clientOpts...)
	yt, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("%w: create youtube service: %v", shared.ErrCatalogFetch, err)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 && !math.IsInf(opts.RequestsPerSecond, 1) {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &CatalogService{
		yt:         yt,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
		regionCode: strings.ToUpper(strings.TrimSpace(opts.RegionCode)),
		maxRetries: max(opts.MaxRetries, 0),
		timeout:    opts.HTTPTimeout,
		newBackOff: newExponentialBackOff,
	}, nil
}

// ResolveSlug returns the filesystem identifier derived from the playlist title.
func (c *CatalogService) ResolveSlug(ctx context.Context, playlistID string) (string, error) {
	var resp *youtube.PlaylistListResponse
	err := c.do(ctx, "playlists.list", func(ctx context.Context) error {
		r, err := c.yt.Playlists.List([]string{"snippet"}).Id(playlistID).Context(ctx).Do()
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", fmt.Errorf("%w: %w: %s", shared.ErrCatalogFetch, shared.ErrPlaylistNotFound, playlistID)
	}

	slug := shared.Slugify(resp.Items[0].Snippet.Title)
	if slug == "" {
		return "", fmt.Errorf("%w: playlist %s has an empty title", shared.ErrCatalogInconsistent, playlistID)
	}
	return slug, nil
}

// ListItems returns every visible item of the playlist, in playlist order.
//
// Pages are requested one after the other until the API stops returning a page token.
// Private items are dropped, and so are items blocked in the configured region.
func (c *CatalogService) ListItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	var items []models.PlaylistItem
	pageToken := ""

	for page := 1; ; page++ {
		var resp *youtube.PlaylistItemListResponse
		err := c.do(ctx, "playlistItems.list", func(ctx context.Context) error {
			call := c.yt.PlaylistItems.List([]string{"snippet", "status"}).
				PlaylistId(playlistID).
				MaxResults(maxPageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			r, err := call.Do()
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			return nil, err
		}

		visible := c.dropPrivate(resp.Items)
		if c.regionCode != "" {
			visible, err = c.dropRegionBlocked(ctx, visible)
			if err != nil {
				return nil, err
			}
		}

		c.logger.Debug("Fetched playlist page", "playlist", playlistID, "page", page, "items", len(resp.Items), "kept", len(visible))
		items = append(items, visible...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return items, nil
}

func (c *CatalogService) dropPrivate(raw []*youtube.PlaylistItem) []models.PlaylistItem {
	items := make([]models.PlaylistItem, 0, len(raw))
	for _, item := range raw {
		if item == nil || item.Snippet == nil || item.Snippet.ResourceId == nil || item.Snippet.ResourceId.VideoId == "" {
			c.logger.Warn("Skipping playlist item without a video id")
			continue
		}

		id := item.Snippet.ResourceId.VideoId
		status := ""
		if item.Status != nil {
			status = item.Status.PrivacyStatus
		}

		switch status {
		case "private", "privacyStatusUnspecified", "":
			c.logger.Warn("This video is now private", "id", id)
			continue
		}

		items = append(items, models.PlaylistItem{ID: id, Title: item.Snippet.Title})
	}
	return items
}

// dropRegionBlocked looks up the region restrictions of items in batches and removes the
// items that cannot be played in the configured region.
func (c *CatalogService) dropRegionBlocked(ctx context.Context, items []models.PlaylistItem) ([]models.PlaylistItem, error) {
	restrictions := make(map[string]*youtube.VideoContentDetailsRegionRestriction, len(items))

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !slices.Contains(ids, item.ID) {
			ids = append(ids, item.ID)
		}
	}

	for batch := range slices.Chunk(ids, maxPageSize) {
		var resp *youtube.VideoListResponse
		err := c.do(ctx, "videos.list", func(ctx context.Context) error {
			r, err := c.yt.Videos.List([]string{"contentDetails"}).
				Id(batch...).
				MaxResults(maxPageSize).
				Context(ctx).
				Do()
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			return nil, err
		}

		if len(resp.Items) != len(batch) {
			return nil, fmt.Errorf("%w: the detailed videos length is different from the playlist length (%d vs %d)",
				shared.ErrCatalogInconsistent, len(resp.Items), len(batch))
		}

		for _, video := range resp.Items {
			if !slices.Contains(batch, video.Id) {
				return nil, fmt.Errorf("%w: unexpected video %s in details", shared.ErrCatalogInconsistent, video.Id)
			}
			var rr *youtube.VideoContentDetailsRegionRestriction
			if video.ContentDetails != nil {
				rr = video.ContentDetails.RegionRestriction
			}
			restrictions[video.Id] = rr
		}
	}

	kept := make([]models.PlaylistItem, 0, len(items))
	for _, item := range items {
		if !availableIn(restrictions[item.ID], c.regionCode) {
			c.logger.Warn("Video is not available anymore in region", "id", item.ID, "title", item.Title, "region", c.regionCode)
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}

// availableIn reports whether a video with the given restriction can be played in region.
func availableIn(rr *youtube.VideoContentDetailsRegionRestriction, region string) bool {
	if rr == nil {
		return true
	}
	match := func(code string) bool { return strings.EqualFold(code, region) }
	if slices.ContainsFunc(rr.Blocked, match) {
		return false
	}
	if len(rr.Allowed) > 0 && !slices.ContainsFunc(rr.Allowed, match) {
		return false
	}
	return true
}

// do runs a single API call with pacing, a per-attempt timeout and retries of transient failures.
func (c *CatalogService) do(ctx context.Context, name string, call func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		err := call(callCtx)
		if err != nil && !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Retrying catalog request", "call", name, "attempt", attempt, "wait", wait, "error", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrCatalogFetch, name, err)
	}
	return nil
}
