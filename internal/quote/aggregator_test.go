package quote

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
)

type fakeProducer struct {
	name    string
	quotes  []FareQuote
	block   time.Duration
	panics  bool
}

func (f *fakeProducer) PlatformName() string { return f.name }

func (f *fakeProducer) Quote(ctx context.Context, pickup, drop geo.Coordinate) []FareQuote {
	if f.panics {
		panic("boom")
	}
	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return nil
		}
	}
	return f.quotes
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAggregatorMergesAllProducersInOrder(t *testing.T) {
	p1 := &fakeProducer{name: "quickride", quotes: []FareQuote{{Platform: "quickride", PriceMinorUnits: 100}}}
	p2 := &fakeProducer{name: "citygo", quotes: []FareQuote{{Platform: "citygo", PriceMinorUnits: 120}}}

	agg := NewAggregator([]Producer{p1, p2}, NewFallbackEstimator("INR").WithSurge(FixedSurge(1.0)), NewCache(time.Minute), time.Second, testLogger())

	quotes := agg.Compare(context.Background(), "req-1", geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.71, Lng: 77.11}, fare.AllClasses)
	if len(quotes) != 2 {
		t.Fatalf("quotes = %d, want 2", len(quotes))
	}
	if quotes[0].Platform != "quickride" || quotes[1].Platform != "citygo" {
		t.Fatalf("expected producer-registration order, got %+v", quotes)
	}
}

func TestAggregatorFallsBackWhenProducerReturnsNothing(t *testing.T) {
	empty := &fakeProducer{name: "metrocab", quotes: nil}

	agg := NewAggregator([]Producer{empty}, NewFallbackEstimator("INR").WithSurge(FixedSurge(1.0)), NewCache(time.Minute), time.Second, testLogger())

	quotes := agg.Compare(context.Background(), "req-2", geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.71, Lng: 77.11}, fare.AllClasses)
	if len(quotes) != len(fare.AllClasses) {
		t.Fatalf("expected a fallback quote per class, got %d", len(quotes))
	}
	for _, q := range quotes {
		if q.Provenance != ProvenanceEstimate {
			t.Errorf("expected estimate provenance, got %s", q.Provenance)
		}
		if q.Platform != "metrocab" {
			t.Errorf("expected fallback to be attributed to the producer's platform, got %s", q.Platform)
		}
	}
}

func TestAggregatorSurvivesPanickingProducer(t *testing.T) {
	bad := &fakeProducer{name: "bad", panics: true}
	good := &fakeProducer{name: "good", quotes: []FareQuote{{Platform: "good", PriceMinorUnits: 50}}}

	agg := NewAggregator([]Producer{bad, good}, NewFallbackEstimator("INR").WithSurge(FixedSurge(1.0)), NewCache(time.Minute), time.Second, testLogger())

	quotes := agg.Compare(context.Background(), "req-3", geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.71, Lng: 77.11}, fare.AllClasses)
	if len(quotes) != len(fare.AllClasses)+1 {
		t.Fatalf("quotes = %d, want %d (fallback for bad + 1 live from good)", len(quotes), len(fare.AllClasses)+1)
	}
}

func TestAggregatorUsesCacheOnSecondCall(t *testing.T) {
	calls := 0
	counting := &countingProducer{fakeProducer: fakeProducer{name: "p", quotes: []FareQuote{{Platform: "p", PriceMinorUnits: 10}}}, calls: &calls}

	agg := NewAggregator([]Producer{counting}, NewFallbackEstimator("INR").WithSurge(FixedSurge(1.0)), NewCache(time.Minute), time.Second, testLogger())

	pickup := geo.Coordinate{Lat: 28.70, Lng: 77.10}
	drop := geo.Coordinate{Lat: 28.71, Lng: 77.11}

	agg.Compare(context.Background(), "req-a", pickup, drop, fare.AllClasses)
	quotes := agg.Compare(context.Background(), "req-b", pickup, drop, fare.AllClasses)

	if calls != 1 {
		t.Fatalf("expected the producer to be called once (second call served from cache), got %d calls", calls)
	}
	if len(quotes) != 1 || quotes[0].Provenance != ProvenanceCached {
		t.Fatalf("expected a cached quote on the second call, got %+v", quotes)
	}
}

type countingProducer struct {
	fakeProducer
	calls *int
}

func (c *countingProducer) Quote(ctx context.Context, pickup, drop geo.Coordinate) []FareQuote {
	*c.calls++
	return c.fakeProducer.Quote(ctx, pickup, drop)
}

func TestAggregatorSubscribeReceivesEvents(t *testing.T) {
	p := &fakeProducer{name: "p", quotes: []FareQuote{{Platform: "p", PriceMinorUnits: 10}}}
	agg := NewAggregator([]Producer{p}, NewFallbackEstimator("INR").WithSurge(FixedSurge(1.0)), NewCache(time.Minute), time.Second, testLogger())

	ch, unsubscribe := agg.Subscribe()
	defer unsubscribe()

	agg.Compare(context.Background(), "req-c", geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.71, Lng: 77.11}, fare.AllClasses)

	sawDone := false
	for i := 0; i < 2; i++ {
		select {
		case evt := <-ch:
			if evt.Done {
				sawDone = true
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for an aggregator event")
		}
	}
	if !sawDone {
		t.Fatal("expected a terminal event with Done=true")
	}
}
