package transport

import "errors"

// Sentinel errors translated to HTTP status codes at the boundary.
// Everything below the boundary (planner, aggregator, producers)
// either returns a value directly or wraps one of these; nothing
// else is expected to reach respondFromError.
var (
	// ErrInputInvalid marks a caller-supplied coordinate that is
	// missing or non-finite. Surfaced as HTTP 400.
	ErrInputInvalid = errors.New("input invalid: coordinates missing or non-finite")

	// ErrFeedUnavailable marks a disabled GTFS feed. This is not
	// treated as an error response: /api/bus-routes still returns
	// 200 with an empty route list (§7). Nothing in this package
	// returns or checks this sentinel; respondFromError maps only
	// ErrInputInvalid.
	ErrFeedUnavailable = errors.New("gtfs feed unavailable: planner disabled")
)
