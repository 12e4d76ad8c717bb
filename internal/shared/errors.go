package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Remote catalog errors
	ErrCatalogFetch        = fmt.Errorf("catalog fetch failed")
	ErrCatalogInconsistent = fmt.Errorf("catalog returned inconsistent results")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found")

	// Local library errors
	ErrDownload    = fmt.Errorf("download failed")
	ErrRename      = fmt.Errorf("rename failed")
	ErrMissingFile = fmt.Errorf("file was not found on disk")
	ErrPersistence = fmt.Errorf("index persistence failed")

	// Health signal errors
	ErrHealthcheck = fmt.Errorf("healthcheck ping failed")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
