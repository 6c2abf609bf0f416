package domain

import "errors"

// Sentinel errors shared between the integration clients that raise them
// and the usecase layer that translates them into request-level failures.
var (
	// ErrLocationNotFound means the geocoder returned no features for the
	// location phrase. Not retried; surfaced as a user-facing error.
	ErrLocationNotFound = errors.New("location not found")

	// ErrOutOfRegion means the coordinate lies outside the serviced
	// bounding box. Raised before any registry call is issued.
	ErrOutOfRegion = errors.New("coordinate outside serviced region")
)
