// Package planner finds bus itineraries between two coordinates using
// a direct-then-one-transfer search over a schedule.Index.
package planner

import "cityhop/internal/geo"

// SegmentKind discriminates the three itinerary segment shapes.
type SegmentKind string

const (
	SegmentWalk     SegmentKind = "walk"
	SegmentBus      SegmentKind = "bus"
	SegmentTransfer SegmentKind = "transfer_wait"
)

// StopRef names one stop visit in a polyline or intermediate list.
type StopRef struct {
	StopID   string         `json:"stopId"`
	Name     string         `json:"name"`
	Coord    geo.Coordinate `json:"coord"`
	Sequence int            `json:"sequence"`
}

// Segment is one leg of an Itinerary.
type Segment struct {
	Kind              SegmentKind    `json:"kind"`
	From              geo.Coordinate `json:"from"`
	To                geo.Coordinate `json:"to"`
	DistanceKm        float64        `json:"distanceKm"`
	DurationMin       int            `json:"durationMin"`
	Polyline          []geo.Coordinate `json:"polyline,omitempty"`

	// Bus-only fields.
	RouteShortName    string    `json:"routeShortName,omitempty"`
	TripID            string    `json:"tripId,omitempty"`
	BoardStop         string    `json:"boardStop,omitempty"`
	AlightStop        string    `json:"alightStop,omitempty"`
	IntermediateStops []StopRef `json:"intermediateStops,omitempty"`
	DepartSec         int       `json:"departSec,omitempty"`
	ArriveSec         int       `json:"arriveSec,omitempty"`
	FareMinorUnits    int       `json:"fareMinorUnits,omitempty"`

	// TransferWait-only field.
	WaitMin int `json:"waitMin,omitempty"`
}

// Itinerary is a complete, end-to-end connected sequence of segments.
type Itinerary struct {
	Segments        []Segment `json:"segments"`
	TotalDurationMin int      `json:"totalDurationMin"`
	TotalFareMinorUnits int   `json:"totalFareMinorUnits"`
}
