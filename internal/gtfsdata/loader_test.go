package gtfsdata

import (
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoader() *Loader {
	l := NewLoader(testLogger())
	l.useCache = false
	return l
}

func TestLoadWellFormedFeed(t *testing.T) {
	feed, err := newTestLoader().Load("testdata/feed")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if feed.Disabled {
		t.Fatalf("feed unexpectedly disabled: %s", feed.DisabledCause)
	}
	if len(feed.Stops) != 4 {
		t.Errorf("stops = %d, want 4", len(feed.Stops))
	}
	if len(feed.Routes) != 2 {
		t.Errorf("routes = %d, want 2", len(feed.Routes))
	}
	if len(feed.Trips) != 2 {
		t.Errorf("trips = %d, want 2", len(feed.Trips))
	}
	if len(feed.StopTimes) != 5 {
		t.Errorf("stop_times = %d, want 5", len(feed.StopTimes))
	}
	if len(feed.Calendars) != 1 {
		t.Errorf("calendars = %d, want 1", len(feed.Calendars))
	}
}

func TestLoadMissingDirectoryDisablesFeed(t *testing.T) {
	feed, err := newTestLoader().Load("testdata/does-not-exist")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !feed.Disabled {
		t.Fatal("expected feed to be disabled for a missing directory")
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	feed, err := newTestLoader().Load("testdata/malformed")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if feed.Disabled {
		t.Fatalf("feed unexpectedly disabled: %s", feed.DisabledCause)
	}
	// S1 and S3 are well-formed; the blank-id row and the bad-latitude
	// row for S2 must be skipped, not abort the whole parse.
	if len(feed.Stops) != 2 {
		t.Errorf("stops = %d, want 2 (malformed rows skipped)", len(feed.Stops))
	}
	if _, ok := feed.Stops["S1"]; !ok {
		t.Error("expected S1 to survive parsing")
	}
	if _, ok := feed.Stops["S2"]; ok {
		t.Error("expected S2 (bad latitude) to be skipped")
	}
}

func TestParseGTFSTimeToSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"10:00:00", 36000},
		{"25:30:00", 91800},
		{"0:00", 0},
		{"", 0},
		{"bad", 0},
	}
	for _, tc := range cases {
		if got := parseGTFSTimeToSeconds(tc.in); got != tc.want {
			t.Errorf("parseGTFSTimeToSeconds(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
