package relay

import "errors"

// Sentinel errors for the relay service layer.
var (
	ErrRunInProgress = errors.New("relay run already in progress")
	ErrNoEndpoint    = errors.New("relay API URL not configured")
)
