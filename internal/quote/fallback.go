package quote

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
)

// Surge abstracts the surge multiplier so tests can pin it to 1.0;
// production code uses RandomSurge.
type Surge func() float64

// RandomSurge returns a uniform value in [1.0, 1.2). Calls are
// serialized on rnd, which is not safe for concurrent use.
func RandomSurge(rnd *rand.Rand) Surge {
	var mu sync.Mutex
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return 1.0 + rnd.Float64()*0.2
	}
}

// FixedSurge always returns v; useful for deterministic tests.
func FixedSurge(v float64) Surge { return func() float64 { return v } }

// FallbackEstimator synthesizes FareQuotes from the shared tariff
// table whenever a producer fails or does not apply to a request.
type FallbackEstimator struct {
	currency string
	surge    Surge
}

// NewFallbackEstimator builds an estimator with its own private,
// lock-guarded random source, so the concurrent producer goroutines
// that share one estimator never race on it.
func NewFallbackEstimator(currency string) *FallbackEstimator {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &FallbackEstimator{currency: currency, surge: RandomSurge(rnd)}
}

// WithSurge overrides the surge function (for tests).
func (e *FallbackEstimator) WithSurge(s Surge) *FallbackEstimator {
	e.surge = s
	return e
}

// Estimate produces one FareQuote per class in classes for platform,
// using great-circle distance between pickup and drop.
func (e *FallbackEstimator) Estimate(platform string, pickup, drop geo.Coordinate, classes []fare.VehicleClass) []FareQuote {
	distanceKm := geo.DistanceKm(pickup, drop)
	now := time.Now().UnixMilli()

	quotes := make([]FareQuote, 0, len(classes))
	for _, class := range classes {
		tariff, ok := fare.TariffFor(class)
		if !ok {
			continue
		}
		raw := float64(tariff.BaseFare) + float64(tariff.PerKmFare)*distanceKm
		price := int(math.Round(raw * e.surge()))
		if price < tariff.MinFare {
			price = tariff.MinFare
		}

		quotes = append(quotes, FareQuote{
			Platform:        platform,
			VehicleClass:    class,
			PriceMinorUnits: price,
			Currency:        e.currency,
			Confidence:      ConfidenceMedium,
			Provenance:      ProvenanceEstimate,
			TimestampMs:     now,
		})
	}
	return quotes
}
