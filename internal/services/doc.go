// Package services implements the network collaborators of a synchronization run.
//
// # Catalog
//
// [CatalogService] wraps the YouTube Data API v3 client. It resolves a playlist id to the
// slug used on disk and lists the playlist items page by page, fifty at a time, until no
// page token is returned.
//
// Items are filtered before they reach the reconciler:
//   - private items (privacy status private, unspecified or missing) are dropped with a warning
//   - when a region code is configured, video details are fetched in batches and items blocked
//     in that region, or absent from a non-empty allow-list, are dropped with a warning
//
// Every call waits on a token bucket limiter and transient failures (429, 5xx, network errors,
// per-request timeouts) are retried with exponential backoff. Other failures are permanent.
//
// # Healthchecks
//
// [HealthcheckService] pings the start, success and fail endpoints of a healthchecks.io style
// monitor. Pings are skipped with a warning when disabled and their failures are logged and
// ignored unless strict mode is enabled.
//
// # Error Handling
//
// Services wrap the sentinel errors from the shared package:
//   - [shared.ErrCatalogFetch] : a catalog request failed after retries
//   - [shared.ErrPlaylistNotFound] : the playlist id matched nothing
//   - [shared.ErrCatalogInconsistent] : video details disagree with the listed items
//   - [shared.ErrHealthcheck] : a ping could not be delivered
package services
