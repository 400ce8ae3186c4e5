package skin

import "errors"

// Asset resolution errors. None of them is fatal: the loader falls through
// to the next source and finally to the flat color.
var (
	ErrNoImage           = errors.New("no image configured or resolved")
	ErrSourceUnreachable = errors.New("source unreachable")
	ErrEmptyPayload      = errors.New("empty response body")
	ErrDecode            = errors.New("cannot decode image")
	ErrFileMissing       = errors.New("local file not found")
	ErrFileUnreadable    = errors.New("local file unreadable")
	ErrCacheWrite        = errors.New("cannot write cache entry")
)

// Engine and configuration errors.
var (
	ErrHostUnavailable    = errors.New("host flag type unavailable")
	ErrUnknownFaction     = errors.New("unknown faction")
	ErrColorInvalid       = errors.New("invalid hex color")
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrEnvInvalid         = errors.New("invalid environment override")
)
