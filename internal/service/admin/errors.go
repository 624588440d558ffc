package admin

import "errors"

// Sentinel errors for the admin service layer.
var (
	ErrNotFound      = errors.New("lead not found")
	ErrInvalidStage  = errors.New("invalid stage")
	ErrUnknownFunnel = errors.New("unknown funnel")
)
