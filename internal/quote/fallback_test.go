package quote

import (
	"testing"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
)

func TestFallbackEstimatorMeetsMinimumFare(t *testing.T) {
	e := NewFallbackEstimator("INR").WithSurge(FixedSurge(1.0))

	pickup := geo.Coordinate{Lat: 28.70, Lng: 77.10}
	drop := geo.Coordinate{Lat: 28.7001, Lng: 77.1001} // essentially zero distance

	quotes := e.Estimate("testplatform", pickup, drop, fare.AllClasses)
	if len(quotes) != len(fare.AllClasses) {
		t.Fatalf("quotes = %d, want %d", len(quotes), len(fare.AllClasses))
	}

	for _, q := range quotes {
		tariff, _ := fare.TariffFor(q.VehicleClass)
		if q.PriceMinorUnits < tariff.MinFare {
			t.Errorf("%s price = %d, want >= minFare %d", q.VehicleClass, q.PriceMinorUnits, tariff.MinFare)
		}
		if q.Provenance != ProvenanceEstimate {
			t.Errorf("provenance = %s, want estimate", q.Provenance)
		}
		if q.Confidence != ConfidenceMedium {
			t.Errorf("confidence = %s, want medium", q.Confidence)
		}
	}
}

func TestFallbackEstimatorScalesWithDistance(t *testing.T) {
	e := NewFallbackEstimator("INR").WithSurge(FixedSurge(1.0))

	near := e.Estimate("p", geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.7005, Lng: 77.1005}, []fare.VehicleClass{fare.ClassSedan})
	far := e.Estimate("p", geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 29.00, Lng: 78.00}, []fare.VehicleClass{fare.ClassSedan})

	if far[0].PriceMinorUnits <= near[0].PriceMinorUnits {
		t.Fatalf("expected a longer trip to cost more: near=%d far=%d", near[0].PriceMinorUnits, far[0].PriceMinorUnits)
	}
}
