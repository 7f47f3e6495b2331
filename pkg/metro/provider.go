// Package metro carries the thin adapter interface for the metro
// travel mode. Per the system's scope, metro directions are delegated
// to an external routing provider; only the contract lives here.
package metro

import (
	"context"
	"fmt"

	"cityhop/internal/geo"
	"cityhop/internal/planner"
)

// Provider resolves metro directions between two coordinates through
// an external routing service. Its concrete implementation (session
// handling, request signing, response translation) is out of scope
// for this repository.
type Provider interface {
	Directions(ctx context.Context, pickup, drop geo.Coordinate) ([]planner.Itinerary, error)
}

// Unavailable is a Provider stub used when no metro routing backend
// is configured. It always reports the mode as unavailable rather
// than silently returning an empty itinerary list, so callers can
// distinguish "no metro route exists" from "metro is not wired up".
type Unavailable struct{}

func (Unavailable) Directions(ctx context.Context, pickup, drop geo.Coordinate) ([]planner.Itinerary, error) {
	return nil, fmt.Errorf("metro: no routing provider configured")
}
