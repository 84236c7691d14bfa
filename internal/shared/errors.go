package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and provider errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited by provider")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrArtistNotFound     = fmt.Errorf("artist not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Playlist parsing errors
	ErrUnsupportedPlaylist = fmt.Errorf("unsupported playlist url")
	ErrPlaylistParse       = fmt.Errorf("failed to parse playlist")

	// Storage errors
	ErrNotFound      = fmt.Errorf("record not found")
	ErrAlreadyExists = fmt.Errorf("record already exists")

	// Job errors
	ErrJobCancelled  = fmt.Errorf("import job cancelled")
	ErrJobNotFound   = fmt.Errorf("import job not found")
	ErrRunInProgress = fmt.Errorf("scheduled import already running")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
