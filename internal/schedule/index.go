// Package schedule builds and serves the derived, read-only indices
// over a parsed GTFS feed. An Index is built once by its owner and
// thereafter shared read-only; it carries no mutex because nothing
// mutates it after Build returns.
package schedule

import (
	"sort"
	"time"

	"cityhop/internal/gtfsdata"
)

// Index is the frozen, queryable view over one GTFS feed.
type Index struct {
	Stops  map[string]gtfsdata.Stop
	Routes map[string]gtfsdata.Route
	Trips  map[string]gtfsdata.Trip

	// stopTimesByTrip is sorted ascending by Sequence.
	stopTimesByTrip map[string][]gtfsdata.StopTime
	stopTimesByStop map[string][]gtfsdata.StopTime
	routesByStop    map[string]map[string]struct{}
	stopsByRoute    map[string][]string // ordered stopIds of the representative trip

	calendars  map[string]gtfsdata.ServiceCalendar
	exceptions map[string][]gtfsdata.ServiceCalendarException

	disabled bool
}

// Disabled reports whether the underlying feed was unavailable; all
// query methods on a disabled Index return empty results.
func (idx *Index) Disabled() bool { return idx == nil || idx.disabled }

// Build constructs an Index from a parsed Feed in a single
// deterministic pass. The loader owns feed during this call; once
// Build returns, nobody may mutate feed or the returned Index.
func Build(feed *gtfsdata.Feed) *Index {
	if feed.Disabled {
		return &Index{disabled: true}
	}

	idx := &Index{
		Stops:           feed.Stops,
		Routes:          feed.Routes,
		Trips:           feed.Trips,
		stopTimesByTrip: make(map[string][]gtfsdata.StopTime),
		stopTimesByStop: make(map[string][]gtfsdata.StopTime),
		routesByStop:    make(map[string]map[string]struct{}),
		stopsByRoute:    make(map[string][]string),
		calendars:       feed.Calendars,
		exceptions:      make(map[string][]gtfsdata.ServiceCalendarException),
	}

	for _, st := range feed.StopTimes {
		idx.stopTimesByTrip[st.TripID] = append(idx.stopTimesByTrip[st.TripID], st)
		idx.stopTimesByStop[st.StopID] = append(idx.stopTimesByStop[st.StopID], st)

		trip, ok := feed.Trips[st.TripID]
		if !ok {
			continue
		}
		if idx.routesByStop[st.StopID] == nil {
			idx.routesByStop[st.StopID] = make(map[string]struct{})
		}
		idx.routesByStop[st.StopID][trip.RouteID] = struct{}{}
	}

	for tripID := range idx.stopTimesByTrip {
		sts := idx.stopTimesByTrip[tripID]
		sort.Slice(sts, func(i, j int) bool { return sts[i].Sequence < sts[j].Sequence })
		idx.stopTimesByTrip[tripID] = sts
	}
	for stopID := range idx.stopTimesByStop {
		sts := idx.stopTimesByStop[stopID]
		sort.Slice(sts, func(i, j int) bool { return sts[i].DepartureSec < sts[j].DepartureSec })
		idx.stopTimesByStop[stopID] = sts
	}

	// stopsByRoute: representative trip = first trip encountered for
	// that route, in feed.Trips iteration order is nondeterministic in
	// Go maps, so we instead pick by first StopTime appended above,
	// which follows the feed's input row order deterministically.
	repTripByRoute := make(map[string]string)
	for _, st := range feed.StopTimes {
		trip, ok := feed.Trips[st.TripID]
		if !ok {
			continue
		}
		if _, taken := repTripByRoute[trip.RouteID]; !taken {
			repTripByRoute[trip.RouteID] = trip.ID
		}
	}
	for routeID, tripID := range repTripByRoute {
		sts := idx.stopTimesByTrip[tripID]
		stopIDs := make([]string, len(sts))
		for i, st := range sts {
			stopIDs[i] = st.StopID
		}
		idx.stopsByRoute[routeID] = stopIDs
	}

	for _, ex := range feed.Exceptions {
		idx.exceptions[ex.ServiceID] = append(idx.exceptions[ex.ServiceID], ex)
	}

	return idx
}

// StopTimesForStop returns the StopTime rows touching stopID, ordered
// by ascending departure second.
func (idx *Index) StopTimesForStop(stopID string) []gtfsdata.StopTime {
	if idx.Disabled() {
		return nil
	}
	return idx.stopTimesByStop[stopID]
}

// TripStopTimes returns the full, sequence-ordered stop pattern for
// tripID.
func (idx *Index) TripStopTimes(tripID string) []gtfsdata.StopTime {
	if idx.Disabled() {
		return nil
	}
	return idx.stopTimesByTrip[tripID]
}

// RoutesAtStop returns the set of routeIds calling at stopID.
func (idx *Index) RoutesAtStop(stopID string) map[string]struct{} {
	if idx.Disabled() {
		return nil
	}
	return idx.routesByStop[stopID]
}

// StopsByRoute returns the representative ordered stop sequence for
// routeID.
func (idx *Index) StopsByRoute(routeID string) []string {
	if idx.Disabled() {
		return nil
	}
	return idx.stopsByRoute[routeID]
}

// TripByID looks up a trip by id.
func (idx *Index) TripByID(tripID string) (gtfsdata.Trip, bool) {
	if idx.Disabled() {
		return gtfsdata.Trip{}, false
	}
	t, ok := idx.Trips[tripID]
	return t, ok
}

// RouteByID looks up a route by id.
func (idx *Index) RouteByID(routeID string) (gtfsdata.Route, bool) {
	if idx.Disabled() {
		return gtfsdata.Route{}, false
	}
	r, ok := idx.Routes[routeID]
	return r, ok
}

// AllStops returns every stop in the feed.
func (idx *Index) AllStops() []gtfsdata.Stop {
	if idx.Disabled() {
		return nil
	}
	out := make([]gtfsdata.Stop, 0, len(idx.Stops))
	for _, s := range idx.Stops {
		out = append(out, s)
	}
	return out
}

// ActiveServices returns the set of serviceIds active on the given
// date (YYYYMMDD, already local to the feed's timezone) with the
// given weekday, after applying calendar_dates.txt exceptions.
func (idx *Index) ActiveServices(dateStr string, weekday time.Weekday) map[string]bool {
	active := make(map[string]bool)
	if idx.Disabled() {
		return active
	}

	// Permissive fallback: any serviceId with no calendar.txt row at
	// all is always-active, per the data model's "no entry means
	// always active" rule. Applied per serviceId rather than only when
	// the whole feed lacks a calendar, since a feed can mix services
	// that do and don't carry a calendar row.
	for _, trip := range idx.Trips {
		if _, ok := idx.calendars[trip.ServiceID]; !ok {
			active[trip.ServiceID] = true
		}
	}

	for serviceID, cal := range idx.calendars {
		if dateStr < cal.StartDate || dateStr > cal.EndDate {
			continue
		}
		if cal.Active[int(weekday)] {
			active[serviceID] = true
		}
	}

	for serviceID, exs := range idx.exceptions {
		for _, ex := range exs {
			if ex.Date != dateStr {
				continue
			}
			switch ex.Type {
			case gtfsdata.ExceptionAdded:
				active[serviceID] = true
			case gtfsdata.ExceptionRemoved:
				delete(active, serviceID)
			}
		}
	}

	return active
}
