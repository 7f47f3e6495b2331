package planner

import (
	"math"
	"sort"
	"time"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
	"cityhop/internal/gtfsdata"
	"cityhop/internal/schedule"
)

const (
	nearbyRadiusKm      = 2.0
	maxNearbyStops      = 20
	transferTopK        = 5
	directResultFloor   = 5
	maxTransferWaitMin  = 45
	maxItineraryMin     = 240
	maxResults          = 5
	walkSpeedMPerMin    = 80.0
)

// Planner finds itineraries over a fixed schedule.Index. now is an
// injectable clock so tests can pin "now" to a literal instant; a
// Planner built for production use should pass time.Now.
type Planner struct {
	idx *schedule.Index
	now func() time.Time
}

func New(idx *schedule.Index) *Planner {
	return &Planner{idx: idx, now: time.Now}
}

// WithClock overrides the time source (for tests).
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

type nearbyStop struct {
	stop       gtfsdata.Stop
	distanceKm float64
}

// FindItineraries is the public entry point. It returns at most
// maxResults itineraries sorted ascending by total duration, or an
// empty slice if nothing is found or the feed is disabled.
func (p *Planner) FindItineraries(pickup, drop geo.Coordinate) []Itinerary {
	if p.idx.Disabled() {
		return nil
	}

	pickupNearby := p.nearbyStops(pickup)
	dropNearby := p.nearbyStops(drop)
	if len(pickupNearby) == 0 || len(dropNearby) == 0 {
		return nil
	}

	now := p.now()
	nowSec := now.Hour()*3600 + now.Minute()*60 + now.Second()
	dateStr := now.Format("20060102")
	active := p.idx.ActiveServices(dateStr, now.Weekday())

	var itins []Itinerary
	seenDirect := make(map[string]bool)

	itins = append(itins, p.findDirect(pickup, drop, pickupNearby, dropNearby, active, nowSec, seenDirect)...)

	if len(itins) < directResultFloor {
		seenTransfer := make(map[string]bool)
		itins = append(itins, p.findTransfer(pickup, drop, pickupNearby, dropNearby, active, nowSec, seenTransfer)...)
	}

	var kept []Itinerary
	for _, it := range itins {
		if it.TotalDurationMin < maxItineraryMin {
			kept = append(kept, it)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].TotalDurationMin < kept[j].TotalDurationMin
	})

	if len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept
}

func (p *Planner) nearbyStops(c geo.Coordinate) []nearbyStop {
	var candidates []nearbyStop
	for _, s := range p.idx.AllStops() {
		d := geo.DistanceKm(c, s.Coord)
		if d <= nearbyRadiusKm {
			candidates = append(candidates, nearbyStop{stop: s, distanceKm: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distanceKm < candidates[j].distanceKm })
	if len(candidates) > maxNearbyStops {
		candidates = candidates[:maxNearbyStops]
	}
	return candidates
}

// candidateTrip is a (board, alight) pair returned by selectTrip.
type candidateTrip struct {
	routeID    string
	tripID     string
	board      gtfsdata.StopTime
	alight     gtfsdata.StopTime
	fullStops  []gtfsdata.StopTime
}

// selectTrip finds the earliest trip on routeID departing boardStopID
// no earlier than earliestSec among services active today, that also
// calls alightStopID later in its sequence.
func (p *Planner) selectTrip(routeID, boardStopID, alightStopID string, active map[string]bool, earliestSec int) (candidateTrip, bool) {
	boardTimes := p.idx.StopTimesForStop(boardStopID)
	filtered := make([]gtfsdata.StopTime, 0, len(boardTimes))

	for _, st := range boardTimes {
		trip, ok := p.tripByID(st.TripID)
		if !ok || trip.RouteID != routeID {
			continue
		}
		if !active[trip.ServiceID] {
			continue
		}
		if st.DepartureSec < earliestSec {
			continue
		}
		filtered = append(filtered, st)
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].DepartureSec < filtered[j].DepartureSec })

	for _, board := range filtered {
		full := p.idx.TripStopTimes(board.TripID)
		for _, alight := range full {
			if alight.StopID == alightStopID && alight.Sequence > board.Sequence {
				return candidateTrip{
					routeID:   routeID,
					tripID:    board.TripID,
					board:     board,
					alight:    alight,
					fullStops: full,
				}, true
			}
		}
	}
	return candidateTrip{}, false
}

func (p *Planner) tripByID(tripID string) (gtfsdata.Trip, bool) {
	trip, ok := p.idx.TripByID(tripID)
	return trip, ok
}

func (p *Planner) findDirect(pickup, drop geo.Coordinate, pickupNearby, dropNearby []nearbyStop, active map[string]bool, nowSec int, seen map[string]bool) []Itinerary {
	pickupRoutes := make(map[string]nearbyStop)
	for _, ns := range pickupNearby {
		for routeID := range p.idx.RoutesAtStop(ns.stop.ID) {
			if existing, ok := pickupRoutes[routeID]; !ok || ns.distanceKm < existing.distanceKm {
				pickupRoutes[routeID] = ns
			}
		}
	}
	dropRoutes := make(map[string]nearbyStop)
	for _, ns := range dropNearby {
		for routeID := range p.idx.RoutesAtStop(ns.stop.ID) {
			if existing, ok := dropRoutes[routeID]; !ok || ns.distanceKm < existing.distanceKm {
				dropRoutes[routeID] = ns
			}
		}
	}

	var itins []Itinerary
	for routeID, pStop := range pickupRoutes {
		dStop, ok := dropRoutes[routeID]
		if !ok {
			continue
		}
		stops := p.idx.StopsByRoute(routeID)
		pi := indexOf(stops, pStop.stop.ID)
		di := indexOf(stops, dStop.stop.ID)
		if pi < 0 || di < 0 || pi >= di {
			continue
		}

		ct, ok := p.selectTrip(routeID, pStop.stop.ID, dStop.stop.ID, active, nowSec)
		if !ok {
			continue
		}

		route, _ := p.idx.RouteByID(routeID)
		key := route.ShortName + "|" + pStop.stop.Name + "|" + dStop.stop.Name
		if seen[key] {
			continue
		}
		seen[key] = true

		it := p.assembleDirect(pickup, drop, pStop, dStop, route, ct)
		itins = append(itins, it)
	}
	return itins
}

func (p *Planner) findTransfer(pickup, drop geo.Coordinate, pickupNearby, dropNearby []nearbyStop, active map[string]bool, nowSec int, seen map[string]bool) []Itinerary {
	pTop := pickupNearby
	if len(pTop) > transferTopK {
		pTop = pTop[:transferTopK]
	}
	dTop := dropNearby
	if len(dTop) > transferTopK {
		dTop = dTop[:transferTopK]
	}

	pickupRoutes := make(map[string]nearbyStop)
	for _, ns := range pTop {
		for routeID := range p.idx.RoutesAtStop(ns.stop.ID) {
			if existing, ok := pickupRoutes[routeID]; !ok || ns.distanceKm < existing.distanceKm {
				pickupRoutes[routeID] = ns
			}
		}
	}
	dropRouteSet := make(map[string]nearbyStop)
	for _, ns := range dTop {
		for routeID := range p.idx.RoutesAtStop(ns.stop.ID) {
			if existing, ok := dropRouteSet[routeID]; !ok || ns.distanceKm < existing.distanceKm {
				dropRouteSet[routeID] = ns
			}
		}
	}

	// transferIndex: stopId -> drop-side routeIds calling there
	transferIndex := make(map[string][]string)
	for dropRouteID := range dropRouteSet {
		for _, stopID := range p.idx.StopsByRoute(dropRouteID) {
			transferIndex[stopID] = append(transferIndex[stopID], dropRouteID)
		}
	}

	var itins []Itinerary
	for pickupRouteID, pStop := range pickupRoutes {
		pStops := p.idx.StopsByRoute(pickupRouteID)
		pi := indexOf(pStops, pStop.stop.ID)
		if pi < 0 {
			continue
		}

		for ti := pi + 1; ti < len(pStops); ti++ {
			transferStopID := pStops[ti]
			dropRouteIDs, ok := transferIndex[transferStopID]
			if !ok {
				continue
			}

			for _, dropRouteID := range dropRouteIDs {
				if dropRouteID == pickupRouteID {
					continue // staying on the same route is a direct trip, not a transfer
				}
				dStop, ok := dropRouteSet[dropRouteID]
				if !ok {
					continue
				}
				dStops := p.idx.StopsByRoute(dropRouteID)
				ti2 := indexOf(dStops, transferStopID)
				di := indexOf(dStops, dStop.stop.ID)
				if ti2 < 0 || di < 0 || ti2 >= di {
					continue
				}

				firstLeg, ok := p.selectTrip(pickupRouteID, pStop.stop.ID, transferStopID, active, nowSec)
				if !ok {
					continue
				}
				secondLeg, ok := p.selectTrip(dropRouteID, transferStopID, dStop.stop.ID, active, firstLeg.alight.ArrivalSec)
				if !ok {
					continue
				}

				waitSec := secondLeg.board.DepartureSec - firstLeg.alight.ArrivalSec
				waitMin := waitSec / 60
				if waitSec < 0 || waitMin >= maxTransferWaitMin {
					continue
				}

				key := pickupRouteID + "|" + transferStopID + "|" + dropRouteID
				if seen[key] {
					continue
				}
				seen[key] = true

				pRoute, _ := p.idx.RouteByID(pickupRouteID)
				dRoute, _ := p.idx.RouteByID(dropRouteID)
				transferStop := p.idx.Stops[transferStopID]

				it := p.assembleTransfer(pickup, drop, pStop, dStop, pRoute, dRoute, transferStop, firstLeg, secondLeg, waitMin)
				itins = append(itins, it)
			}
		}
	}
	return itins
}

func (p *Planner) assembleDirect(pickup, drop geo.Coordinate, pStop, dStop nearbyStop, route gtfsdata.Route, ct candidateTrip) Itinerary {
	walkToBoard := walkSegment(pickup, pStop.stop.Coord)
	bus := p.busSegment(route, ct)
	walkFromAlight := walkSegment(dStop.stop.Coord, drop)

	segs := []Segment{walkToBoard, bus, walkFromAlight}
	return finalizeItinerary(segs)
}

func (p *Planner) assembleTransfer(pickup, drop geo.Coordinate, pStop, dStop nearbyStop, pRoute, dRoute gtfsdata.Route, transferStop gtfsdata.Stop, firstLeg, secondLeg candidateTrip, waitMin int) Itinerary {
	walkToBoard := walkSegment(pickup, pStop.stop.Coord)
	firstBus := p.busSegment(pRoute, firstLeg)
	transferWait := Segment{
		Kind:        SegmentTransfer,
		From:        transferStop.Coord,
		To:          transferStop.Coord,
		DurationMin: waitMin,
		WaitMin:     waitMin,
	}
	secondBus := p.busSegment(dRoute, secondLeg)
	walkFromAlight := walkSegment(dStop.stop.Coord, drop)

	segs := []Segment{walkToBoard, firstBus, transferWait, secondBus, walkFromAlight}
	return finalizeItinerary(segs)
}

func (p *Planner) busSegment(route gtfsdata.Route, ct candidateTrip) Segment {
	var intermediate []StopRef
	var polyline []geo.Coordinate
	distanceKm := 0.0

	var prevCoord geo.Coordinate
	first := true
	for _, st := range ct.fullStops {
		if st.Sequence < ct.board.Sequence || st.Sequence > ct.alight.Sequence {
			continue
		}
		stop := p.idx.Stops[st.StopID]
		polyline = append(polyline, stop.Coord)
		if !first {
			distanceKm += geo.DistanceKm(prevCoord, stop.Coord)
		}
		prevCoord = stop.Coord
		first = false

		if st.Sequence > ct.board.Sequence && st.Sequence < ct.alight.Sequence {
			intermediate = append(intermediate, StopRef{
				StopID: st.StopID, Name: stop.Name, Coord: stop.Coord, Sequence: st.Sequence,
			})
		}
	}

	durationSec := ct.alight.ArrivalSec - ct.board.DepartureSec
	durationMin := int(math.Ceil(float64(durationSec) / 60.0))
	if durationMin < 0 {
		durationMin = 0
	}

	boardStop := p.idx.Stops[ct.board.StopID]
	alightStop := p.idx.Stops[ct.alight.StopID]

	return Segment{
		Kind:              SegmentBus,
		From:              boardStop.Coord,
		To:                alightStop.Coord,
		DistanceKm:        distanceKm,
		DurationMin:       durationMin,
		Polyline:          polyline,
		RouteShortName:    route.ShortName,
		TripID:            ct.tripID,
		BoardStop:         boardStop.Name,
		AlightStop:        alightStop.Name,
		IntermediateStops: intermediate,
		DepartSec:         ct.board.DepartureSec,
		ArriveSec:         ct.alight.ArrivalSec,
		FareMinorUnits:    fare.BusFare(distanceKm),
	}
}

func walkSegment(from, to geo.Coordinate) Segment {
	distanceKm := geo.DistanceKm(from, to)
	minutes := int(math.Ceil((distanceKm * 1000) / walkSpeedMPerMin))
	return Segment{
		Kind:        SegmentWalk,
		From:        from,
		To:          to,
		DistanceKm:  distanceKm,
		DurationMin: minutes,
		Polyline:    []geo.Coordinate{from, to},
	}
}

func finalizeItinerary(segs []Segment) Itinerary {
	totalMin := 0
	totalFare := 0
	for _, s := range segs {
		totalMin += s.DurationMin
		totalFare += s.FareMinorUnits
	}
	return Itinerary{Segments: segs, TotalDurationMin: totalMin, TotalFareMinorUnits: totalFare}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
