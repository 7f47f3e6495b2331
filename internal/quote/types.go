// Package quote defines the fare-quote data model, the QuoteProducer
// capability, and the aggregator that fans out to all registered
// producers in parallel.
package quote

import (
	"context"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
)

// Provenance marks how a FareQuote was produced.
type Provenance string

const (
	ProvenanceLive     Provenance = "live"
	ProvenanceEstimate Provenance = "estimate"
	ProvenanceCached   Provenance = "cached"
)

// Confidence is a coarse reliability signal attached to a FareQuote.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FareQuote is one platform's price for one vehicle class.
type FareQuote struct {
	Platform        string            `json:"platform"`
	VehicleClass    fare.VehicleClass `json:"vehicleClass"`
	PriceMinorUnits int               `json:"priceMinorUnits"`
	Currency        string            `json:"currency"`
	ETALabel        string            `json:"etaLabel,omitempty"`
	Confidence      Confidence        `json:"confidence"`
	Provenance      Provenance        `json:"provenance"`
	TimestampMs     int64             `json:"timestampMs"`
}

// Producer targets one upstream ride-hailing platform. Quote never
// returns an error to its caller: on internal failure it returns no
// quotes, and the Aggregator substitutes synthesized estimates
// attributed to the producer's platform.
type Producer interface {
	PlatformName() string
	Quote(ctx context.Context, pickup, drop geo.Coordinate) []FareQuote
}
