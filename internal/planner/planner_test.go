package planner

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"cityhop/internal/geo"
	"cityhop/internal/gtfsdata"
	"cityhop/internal/schedule"
)

func buildTestIndex(t *testing.T, dir string) *schedule.Index {
	t.Helper()
	l := gtfsdata.NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	feed, err := l.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return schedule.Build(feed)
}

func fixedClock(s string) func() time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

// S1: direct bus exists.
func TestFindItinerariesDirect(t *testing.T) {
	idx := buildTestIndex(t, "../gtfsdata/testdata/feed")
	// 2026-03-02 is a Monday.
	p := New(idx).WithClock(fixedClock("2026-03-02 09:55:00"))

	pickup := geo.Coordinate{Lat: 28.7001, Lng: 77.1001}
	drop := geo.Coordinate{Lat: 28.7051, Lng: 77.1051}

	itins := p.FindItineraries(pickup, drop)
	if len(itins) != 1 {
		t.Fatalf("itineraries = %d, want 1; got %+v", len(itins), itins)
	}

	it := itins[0]
	if len(it.Segments) != 3 {
		t.Fatalf("segments = %d, want 3 (walk, bus, walk)", len(it.Segments))
	}
	if it.Segments[0].Kind != SegmentWalk || it.Segments[2].Kind != SegmentWalk {
		t.Fatalf("expected walk segments at both ends, got %v / %v", it.Segments[0].Kind, it.Segments[2].Kind)
	}
	bus := it.Segments[1]
	if bus.Kind != SegmentBus {
		t.Fatalf("expected bus segment in the middle, got %v", bus.Kind)
	}
	if bus.RouteShortName != "R1" {
		t.Errorf("route = %q, want R1", bus.RouteShortName)
	}
	if len(bus.IntermediateStops) != 1 {
		t.Errorf("intermediate stops = %d, want 1 (S2)", len(bus.IntermediateStops))
	}
	if bus.FareMinorUnits != 5 {
		t.Errorf("fare = %d, want 5", bus.FareMinorUnits)
	}
	if it.TotalDurationMin > 25 {
		t.Errorf("total duration = %d min, want <= 25", it.TotalDurationMin)
	}
}

// S2: no nearby stops.
func TestFindItinerariesNoNearbyStops(t *testing.T) {
	idx := buildTestIndex(t, "../gtfsdata/testdata/feed")
	p := New(idx).WithClock(fixedClock("2026-03-02 09:55:00"))

	itins := p.FindItineraries(geo.Coordinate{Lat: 0, Lng: 0}, geo.Coordinate{Lat: 1, Lng: 1})
	if len(itins) != 0 {
		t.Fatalf("expected no itineraries, got %d", len(itins))
	}
}

// S3: service inactive (weekend).
func TestFindItinerariesServiceInactive(t *testing.T) {
	idx := buildTestIndex(t, "../gtfsdata/testdata/feed")
	// 2026-03-01 is a Sunday; WKD service does not run.
	p := New(idx).WithClock(fixedClock("2026-03-01 09:55:00"))

	pickup := geo.Coordinate{Lat: 28.7001, Lng: 77.1001}
	drop := geo.Coordinate{Lat: 28.7051, Lng: 77.1051}

	itins := p.FindItineraries(pickup, drop)
	if len(itins) != 0 {
		t.Fatalf("expected no itineraries on an inactive service day, got %d", len(itins))
	}
}

// S4: one-transfer itinerary via R1 -> S3 -> R2.
func TestFindItinerariesTransfer(t *testing.T) {
	idx := buildTestIndex(t, "../gtfsdata/testdata/feed")
	p := New(idx).WithClock(fixedClock("2026-03-02 09:55:00"))

	pickup := geo.Coordinate{Lat: 28.7001, Lng: 77.1001}
	drop := geo.Coordinate{Lat: 28.7081, Lng: 77.1081}

	itins := p.FindItineraries(pickup, drop)
	if len(itins) == 0 {
		t.Fatal("expected at least one transfer itinerary")
	}

	// Direct R1 (alight at S3, walk on) and direct R2 (walk to S3) are
	// also found and are faster, so the transfer itinerary is not first.
	var it Itinerary
	found := false
	for _, cand := range itins {
		for _, seg := range cand.Segments {
			if seg.Kind == SegmentTransfer {
				it, found = cand, true
			}
		}
		if found {
			break
		}
	}
	if !found {
		t.Fatalf("expected a transfer itinerary among %d results; got %+v", len(itins), itins)
	}
	if len(it.Segments) != 5 {
		t.Fatalf("segments = %d, want 5 (walk, bus, transfer, bus, walk); got %+v", len(it.Segments), it.Segments)
	}
	if it.Segments[2].Kind != SegmentTransfer {
		t.Fatalf("expected transfer_wait segment at index 2, got %v", it.Segments[2].Kind)
	}
	if it.Segments[2].WaitMin < 0 || it.Segments[2].WaitMin >= maxTransferWaitMin {
		t.Errorf("wait = %d min, want in [0,%d)", it.Segments[2].WaitMin, maxTransferWaitMin)
	}
}

func TestFindItinerariesSortedAndBounded(t *testing.T) {
	idx := buildTestIndex(t, "../gtfsdata/testdata/feed")
	p := New(idx).WithClock(fixedClock("2026-03-02 09:55:00"))

	itins := p.FindItineraries(geo.Coordinate{Lat: 28.7001, Lng: 77.1001}, geo.Coordinate{Lat: 28.7081, Lng: 77.1081})
	if len(itins) > maxResults {
		t.Fatalf("itineraries = %d, want <= %d", len(itins), maxResults)
	}
	for i := 1; i < len(itins); i++ {
		if itins[i].TotalDurationMin < itins[i-1].TotalDurationMin {
			t.Fatalf("itineraries not sorted ascending by duration: %+v", itins)
		}
	}
}

func TestFindItinerariesDisabledFeed(t *testing.T) {
	idx := schedule.Build(&gtfsdata.Feed{Disabled: true})
	p := New(idx)
	itins := p.FindItineraries(geo.Coordinate{Lat: 28.7, Lng: 77.1}, geo.Coordinate{Lat: 28.71, Lng: 77.11})
	if len(itins) != 0 {
		t.Fatalf("expected no itineraries for a disabled feed, got %d", len(itins))
	}
}
