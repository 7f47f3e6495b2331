package transport

import (
	"fmt"
	"math"

	"cityhop/internal/geo"
	"cityhop/internal/planner"
	"cityhop/internal/quote"
)

// coordinateRequest is the shared request body shape for both
// /api/compare-fares and /api/bus-routes.
type coordinateRequest struct {
	Pickup wireCoordinate `json:"pickup"`
	Drop   wireCoordinate `json:"drop"`
}

type wireCoordinate struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (c wireCoordinate) toGeo() (geo.Coordinate, bool) {
	if c.Lat == nil || c.Lng == nil {
		return geo.Coordinate{}, false
	}
	coord := geo.Coordinate{Lat: *c.Lat, Lng: *c.Lng}
	return coord, coord.Valid()
}

func (r coordinateRequest) parse() (pickup, drop geo.Coordinate, err error) {
	pickup, ok := r.Pickup.toGeo()
	if !ok {
		return geo.Coordinate{}, geo.Coordinate{}, ErrInputInvalid
	}
	drop, ok = r.Drop.toGeo()
	if !ok {
		return geo.Coordinate{}, geo.Coordinate{}, ErrInputInvalid
	}
	return pickup, drop, nil
}

// wireFareEstimate is one FareQuote shaped for /api/compare-fares,
// matching the existing client's field names exactly (§6).
type wireFareEstimate struct {
	Platform     string  `json:"platform"`
	VehicleType  string  `json:"vehicleType"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	ETA          string  `json:"eta,omitempty"`
	Source       string  `json:"source"`
	Confidence   string  `json:"confidence"`
}

type compareFaresResponse struct {
	Success   bool               `json:"success"`
	Count     int                `json:"count"`
	Estimates []wireFareEstimate `json:"estimates"`
}

// toWireEstimate translates one internal FareQuote to the wire shape.
// "source" distinguishes a producer's transport technique (api vs
// scraped) in addition to cached/estimate, which §6 lists as the
// full set of legal values alongside plain "live".
func toWireEstimate(q quote.FareQuote) wireFareEstimate {
	return wireFareEstimate{
		Platform:    q.Platform,
		VehicleType: string(q.VehicleClass),
		Price:       math.Round(float64(q.PriceMinorUnits)/100*100) / 100,
		Currency:    q.Currency,
		ETA:         q.ETALabel,
		Source:      wireSource(q),
		Confidence:  string(q.Confidence),
	}
}

func wireSource(q quote.FareQuote) string {
	switch q.Provenance {
	case quote.ProvenanceCached:
		return "cached"
	case quote.ProvenanceEstimate:
		return "estimate"
	case quote.ProvenanceLive:
		switch q.Platform {
		case "metrocab":
			return "scraped"
		case "quickride":
			return "api"
		default:
			return "live"
		}
	default:
		return "live"
	}
}

// wirePathPoint is one stop or endpoint visited along a bus route's
// physical path.
type wirePathPoint struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Name     string  `json:"name"`
	Sequence int     `json:"sequence"`
}

type busRouteResponse struct {
	RouteName     string            `json:"route_name"`
	StartStop     string            `json:"start_stop"`
	EndStop       string            `json:"end_stop"`
	DepartureTime string            `json:"departure_time"`
	ArrivalTime   string            `json:"arrival_time"`
	Duration      string            `json:"duration"`
	StopsCount    int               `json:"stops_count"`
	Fare          int               `json:"fare"`
	Path          []wirePathPoint   `json:"path"`
	Segments      []planner.Segment `json:"segments"`
	TotalDistance string            `json:"total_distance"`
}

type busRoutesResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	Routes  []busRouteResponse `json:"routes"`
}

// toWireBusRoute shapes one planner.Itinerary for the external
// client. Bus-leg names are joined with " -> " so a transfer itinerary
// still reports a single route_name string.
func toWireBusRoute(it planner.Itinerary) busRouteResponse {
	var routeNames []string
	var startStop, endStop string
	var departSec, arriveSec int
	haveDepart := false
	distanceKm := 0.0
	stopIDs := make(map[string]struct{})
	var path []wirePathPoint

	appendPoint := func(c geo.Coordinate, name string) {
		if n := len(path); n > 0 {
			last := path[n-1]
			if last.Lat == c.Lat && last.Lng == c.Lng {
				if last.Name == "" && name != "" {
					path[n-1].Name = name
				}
				return
			}
		}
		path = append(path, wirePathPoint{Lat: c.Lat, Lng: c.Lng, Name: name, Sequence: len(path)})
	}

	for _, seg := range it.Segments {
		distanceKm += seg.DistanceKm

		switch seg.Kind {
		case planner.SegmentWalk:
			appendPoint(seg.From, "")
			appendPoint(seg.To, "")
		case planner.SegmentTransfer:
			appendPoint(seg.From, "")
		case planner.SegmentBus:
			routeNames = append(routeNames, seg.RouteShortName)
			if startStop == "" {
				startStop = seg.BoardStop
			}
			endStop = seg.AlightStop
			if !haveDepart {
				departSec = seg.DepartSec
				haveDepart = true
			}
			arriveSec = seg.ArriveSec

			appendPoint(seg.From, seg.BoardStop)
			for _, is := range seg.IntermediateStops {
				appendPoint(is.Coord, is.Name)
				stopIDs[is.StopID] = struct{}{}
			}
			appendPoint(seg.To, seg.AlightStop)
		}
	}

	return busRouteResponse{
		RouteName:     joinRouteNames(routeNames),
		StartStop:     startStop,
		EndStop:       endStop,
		DepartureTime: secondsToClock(departSec),
		ArrivalTime:   secondsToClock(arriveSec),
		Duration:      fmt.Sprintf("%d mins", it.TotalDurationMin),
		StopsCount:    busStopCount(it),
		Fare:          it.TotalFareMinorUnits,
		Path:          path,
		Segments:      it.Segments,
		TotalDistance: fmt.Sprintf("%.1f km", distanceKm),
	}
}

func joinRouteNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}

// busStopCount counts the distinct physical stops (board, alight and
// every intermediate stop) visited across all bus segments.
func busStopCount(it planner.Itinerary) int {
	seen := make(map[string]struct{})
	for _, seg := range it.Segments {
		if seg.Kind != planner.SegmentBus {
			continue
		}
		seen[seg.BoardStop] = struct{}{}
		seen[seg.AlightStop] = struct{}{}
		for _, is := range seg.IntermediateStops {
			seen[is.Name] = struct{}{}
		}
	}
	return len(seen)
}

// secondsToClock formats seconds-from-service-day-midnight as
// HH:MM:SS. Values above 86400 (after-midnight trips) are not
// wrapped, matching how GTFS itself represents them.
func secondsToClock(totalSec int) string {
	if totalSec < 0 {
		totalSec = 0
	}
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	s := totalSec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
