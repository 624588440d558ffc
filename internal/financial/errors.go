package financial

import "errors"

var (
	// ErrWastedClicksOutOfRange is returned when wasted clicks reach 100%,
	// which would make the effective CPC undefined.
	ErrWastedClicksOutOfRange = errors.New("wasted clicks must be below 100%")

	// ErrUnknownStrategy is returned for an unrecognised strategy name.
	ErrUnknownStrategy = errors.New("unknown calculator strategy")
)
