package gtfsdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cityhop/internal/geo"
)

// mandatory files; their absence puts the Feed into disabled mode.
var mandatoryFiles = []string{"stops.txt", "stop_times.txt", "trips.txt", "routes.txt", "calendar.txt"}

// Feed is the raw parse result: flat tables, not yet indexed for
// lookup. schedule.Build turns a Feed into a ScheduleIndex.
type Feed struct {
	Stops         map[string]Stop
	Routes        map[string]Route
	Trips         map[string]Trip
	StopTimes     []StopTime
	Calendars     map[string]ServiceCalendar
	Exceptions    []ServiceCalendarException
	Disabled      bool
	DisabledCause string
}

// Loader reads a directory of GTFS csv files into a Feed.
type Loader struct {
	logger       *slog.Logger
	useCache     bool
	cacheDir     string
}

func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{
		logger:   logger.With("component", "gtfs_loader"),
		useCache: true,
		cacheDir: CacheDir(),
	}
}

// Load reads dir and returns a Feed. A missing directory or missing
// mandatory file is not a hard error: the returned Feed has
// Disabled=true and planning queries against it must return no
// results. A parsed-feed cache keyed by a fingerprint of the feed's
// files is consulted first, so repeated startups against an unchanged
// feed skip the csv parse entirely.
func (l *Loader) Load(dir string) (*Feed, error) {
	start := time.Now()

	for _, name := range mandatoryFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			l.logger.Warn("gtfs feed disabled: mandatory file missing", "file", name, "dir", dir)
			return &Feed{Disabled: true, DisabledCause: fmt.Sprintf("missing %s", name)}, nil
		}
	}

	if l.useCache {
		if fp, err := DirFingerprint(dir); err == nil {
			if cached, err := LoadCached(l.cacheDir, fp); err == nil {
				l.logger.Info("gtfs feed loaded from parsed cache",
					"stops", len(cached.Stops), "routes", len(cached.Routes),
					"duration_ms", time.Since(start).Milliseconds())
				return cached, nil
			}
		}
	}

	feed := &Feed{
		Stops:     make(map[string]Stop),
		Routes:    make(map[string]Route),
		Trips:     make(map[string]Trip),
		Calendars: make(map[string]ServiceCalendar),
	}

	if err := l.parseStops(dir, feed); err != nil {
		return nil, fmt.Errorf("parse stops: %w", err)
	}
	if err := l.parseRoutes(dir, feed); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}
	if err := l.parseTrips(dir, feed); err != nil {
		return nil, fmt.Errorf("parse trips: %w", err)
	}
	if err := l.parseCalendar(dir, feed); err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}
	if err := l.parseStopTimes(dir, feed); err != nil {
		return nil, fmt.Errorf("parse stop_times: %w", err)
	}
	if err := l.parseCalendarDates(dir, feed); err != nil {
		// optional file; log and continue
		l.logger.Debug("calendar_dates.txt not parsed", "error", err)
	}

	l.logger.Info("gtfs feed loaded",
		"stops", len(feed.Stops),
		"routes", len(feed.Routes),
		"trips", len(feed.Trips),
		"stop_times", len(feed.StopTimes),
		"calendars", len(feed.Calendars),
		"exceptions", len(feed.Exceptions),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if l.useCache {
		if fp, err := DirFingerprint(dir); err == nil {
			if err := SaveCached(l.cacheDir, fp, feed); err != nil {
				l.logger.Debug("failed to save parsed feed cache", "error", err)
			}
		}
	}

	return feed, nil
}

func openCSV(dir, name string) (*csv.Reader, *os.File, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r, f, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	i, ok := idx[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (l *Loader) parseStops(dir string, feed *Feed) error {
	r, f, err := openCSV(dir, "stops.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := r.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)
	logger := l.logger.With("file", "stops.txt")

	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			logger.Warn("skipping malformed row", "error", err)
			continue
		}

		id := getField(record, idx, "stop_id")
		name := getField(record, idx, "stop_name")
		latStr := getField(record, idx, "stop_lat")
		lngStr := getField(record, idx, "stop_lon")

		if id == "" || latStr == "" || lngStr == "" {
			skipped++
			logger.Warn("skipping row missing required fields", "stop_id", id)
			continue
		}

		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			skipped++
			logger.Warn("skipping row with unparsable coordinates", "stop_id", id)
			continue
		}

		coord := geo.Coordinate{Lat: lat, Lng: lng}
		if !coord.Valid() {
			skipped++
			logger.Warn("skipping row with out-of-range coordinates", "stop_id", id)
			continue
		}

		feed.Stops[id] = Stop{ID: id, Name: name, Coord: coord}
	}
	logger.Debug("parsed stops.txt", "count", len(feed.Stops), "skipped", skipped)
	return nil
}

func (l *Loader) parseRoutes(dir string, feed *Feed) error {
	r, f, err := openCSV(dir, "routes.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := r.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)
	logger := l.logger.With("file", "routes.txt")

	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		id := getField(record, idx, "route_id")
		if id == "" {
			skipped++
			continue
		}

		routeType := 3 // default to bus if absent/unparsable
		if t, err := strconv.Atoi(getField(record, idx, "route_type")); err == nil {
			routeType = t
		}

		feed.Routes[id] = Route{
			ID:        id,
			ShortName: getField(record, idx, "route_short_name"),
			LongName:  getField(record, idx, "route_long_name"),
			Type:      routeType,
		}
	}
	logger.Debug("parsed routes.txt", "count", len(feed.Routes), "skipped", skipped)
	return nil
}

func (l *Loader) parseTrips(dir string, feed *Feed) error {
	r, f, err := openCSV(dir, "trips.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := r.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)
	logger := l.logger.With("file", "trips.txt")

	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		id := getField(record, idx, "trip_id")
		routeID := getField(record, idx, "route_id")
		serviceID := getField(record, idx, "service_id")
		if id == "" || routeID == "" || serviceID == "" {
			skipped++
			logger.Warn("skipping row missing required fields", "trip_id", id)
			continue
		}

		feed.Trips[id] = Trip{
			ID:        id,
			RouteID:   routeID,
			ServiceID: serviceID,
			Headsign:  getField(record, idx, "trip_headsign"),
		}
	}
	logger.Debug("parsed trips.txt", "count", len(feed.Trips), "skipped", skipped)
	return nil
}

func (l *Loader) parseCalendar(dir string, feed *Feed) error {
	r, f, err := openCSV(dir, "calendar.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := r.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)
	logger := l.logger.With("file", "calendar.txt")

	dayCols := [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		serviceID := getField(record, idx, "service_id")
		if serviceID == "" {
			skipped++
			continue
		}

		var active [7]bool
		for i, col := range dayCols {
			active[i] = getField(record, idx, col) == "1"
		}

		feed.Calendars[serviceID] = ServiceCalendar{
			ServiceID: serviceID,
			Active:    active,
			StartDate: getField(record, idx, "start_date"),
			EndDate:   getField(record, idx, "end_date"),
		}
	}
	logger.Debug("parsed calendar.txt", "count", len(feed.Calendars), "skipped", skipped)
	return nil
}

func (l *Loader) parseCalendarDates(dir string, feed *Feed) error {
	r, f, err := openCSV(dir, "calendar_dates.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := r.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)
	logger := l.logger.With("file", "calendar_dates.txt")

	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		serviceID := getField(record, idx, "service_id")
		date := getField(record, idx, "date")
		exTypeStr := getField(record, idx, "exception_type")
		exType, err := strconv.Atoi(exTypeStr)
		if serviceID == "" || date == "" || err != nil || (exType != 1 && exType != 2) {
			skipped++
			continue
		}

		feed.Exceptions = append(feed.Exceptions, ServiceCalendarException{
			ServiceID: serviceID,
			Date:      date,
			Type:      ExceptionType(exType),
		})
	}
	logger.Debug("parsed calendar_dates.txt", "count", len(feed.Exceptions), "skipped", skipped)
	return nil
}

func (l *Loader) parseStopTimes(dir string, feed *Feed) error {
	r, f, err := openCSV(dir, "stop_times.txt")
	if err != nil {
		return err
	}
	defer f.Close()
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)
	logger := l.logger.With("file", "stop_times.txt")

	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		tripID := getField(record, idx, "trip_id")
		stopID := getField(record, idx, "stop_id")
		seqStr := getField(record, idx, "stop_sequence")
		seq, errSeq := strconv.Atoi(seqStr)
		if tripID == "" || stopID == "" || errSeq != nil {
			skipped++
			logger.Warn("skipping row missing required fields", "trip_id", tripID)
			continue
		}

		arr := parseGTFSTimeToSeconds(getField(record, idx, "arrival_time"))
		dep := parseGTFSTimeToSeconds(getField(record, idx, "departure_time"))

		feed.StopTimes = append(feed.StopTimes, StopTime{
			TripID:       tripID,
			StopID:       stopID,
			Sequence:     seq,
			ArrivalSec:   arr,
			DepartureSec: dep,
		})

		if len(feed.StopTimes)%1_000_000 == 0 {
			logger.Debug("parsing in progress", "rows", len(feed.StopTimes))
		}
	}
	logger.Debug("parsed stop_times.txt", "count", len(feed.StopTimes), "skipped", skipped)
	return nil
}

// parseGTFSTimeToSeconds parses "HH:MM:SS" (H may exceed 24) into
// seconds since service-day midnight. Malformed input yields 0.
func parseGTFSTimeToSeconds(s string) int {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	sec := 0
	if len(parts) > 2 {
		sec, _ = strconv.Atoi(parts[2])
	}
	if errH != nil || errM != nil {
		return 0
	}
	if h < 0 {
		h = 0
	}
	if m < 0 {
		m = 0
	}
	if sec < 0 {
		sec = 0
	}
	return h*3600 + m*60 + sec
}
