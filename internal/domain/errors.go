package domain

import "errors"

// Sentinel errors used throughout the application.
// Callers wrap them with fmt.Errorf and match them with errors.Is.
var (
	ErrMissingConfig       = errors.New("missing required configuration")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidBatchSize    = errors.New("batch size must be at least 1")
	ErrInvalidHolder       = errors.New("holder is not a valid public key")
	ErrMalformedResponse   = errors.New("malformed user info response")
	ErrInvalidReplayList   = errors.New("invalid cache format: cache should be an array of strings")
	ErrUnknownCacheBackend = errors.New("unknown cache backend: must be file, postgres, or redis")
	ErrUnknownSource       = errors.New("unknown holder source: must be snapshot or scan")
)
