// Package gtfsdata holds the static schedule data model and the
// loader that builds it from a directory of GTFS csv files.
package gtfsdata

import "cityhop/internal/geo"

// Stop is a fixed boarding/alighting location.
type Stop struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Coord geo.Coordinate `json:"coord"`
}

// Route is a labeled line served by one or more trips.
type Route struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	Type      int    `json:"type"`
}

// Trip is one scheduled run of a vehicle along a route.
type Trip struct {
	ID        string `json:"id"`
	RouteID   string `json:"routeId"`
	ServiceID string `json:"serviceId"`
	Headsign  string `json:"headsign"`
}

// StopTime is one stop visit within a trip's call pattern. Seconds
// are measured from service-day midnight and may exceed 86400 for
// after-midnight trips.
type StopTime struct {
	TripID        string `json:"tripId"`
	StopID        string `json:"stopId"`
	Sequence      int    `json:"sequence"`
	ArrivalSec    int    `json:"arrivalSec"`
	DepartureSec  int    `json:"departureSec"`
}

// ServiceCalendar is the weekly activity pattern and validity window
// for one serviceId.
type ServiceCalendar struct {
	ServiceID string
	Active    [7]bool // index by time.Weekday: Sunday=0 .. Saturday=6
	StartDate string  // YYYYMMDD
	EndDate   string  // YYYYMMDD
}

// ExceptionType is a calendar_dates.txt exception kind.
type ExceptionType int

const (
	ExceptionAdded   ExceptionType = 1
	ExceptionRemoved ExceptionType = 2
)

// ServiceCalendarException is one calendar_dates.txt row.
type ServiceCalendarException struct {
	ServiceID string
	Date      string // YYYYMMDD
	Type      ExceptionType
}
