// Package producers holds the concrete Producer implementations that
// back the three platforms compare-fares quotes against.
package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
	"cityhop/internal/quote"
)

// QuickRide is an HTTP JSON client against a quote API, modeled after
// a typical city ride-hailing aggregator endpoint.
type QuickRide struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewQuickRide(baseURL, apiKey string, logger *slog.Logger) *QuickRide {
	return &QuickRide{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With("producer", "quickride"),
	}
}

func (q *QuickRide) PlatformName() string { return "quickride" }

type quickRideAPIResponse struct {
	Fares []quickRideFare `json:"fares"`
	Error string          `json:"error,omitempty"`
}

type quickRideFare struct {
	VehicleClass string  `json:"vehicle_class"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	ETAMinutes   int     `json:"eta_minutes"`
}

// Quote calls the upstream API and converts its response to
// FareQuotes. On any failure it logs and returns nil rather than
// propagating an error, per the Producer contract; the aggregator then
// substitutes fallback estimates.
func (q *QuickRide) Quote(ctx context.Context, pickup, drop geo.Coordinate) []quote.FareQuote {
	quotes, err := q.fetch(ctx, pickup, drop)
	if err != nil {
		q.logger.Warn("falling back to estimate", "error", err)
		return nil
	}
	return quotes
}

func (q *QuickRide) fetch(ctx context.Context, pickup, drop geo.Coordinate) ([]quote.FareQuote, error) {
	params := url.Values{}
	params.Set("apikey", q.apiKey)
	params.Set("pickup_lat", fmt.Sprintf("%f", pickup.Lat))
	params.Set("pickup_lng", fmt.Sprintf("%f", pickup.Lng))
	params.Set("drop_lat", fmt.Sprintf("%f", drop.Lat))
	params.Set("drop_lng", fmt.Sprintf("%f", drop.Lng))

	reqURL := fmt.Sprintf("%s?%s", q.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var apiResp quickRideAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if apiResp.Error != "" {
		return nil, fmt.Errorf("API error: %s", apiResp.Error)
	}

	return q.toDomain(apiResp.Fares), nil
}

func (q *QuickRide) toDomain(fares []quickRideFare) []quote.FareQuote {
	now := time.Now().UnixMilli()
	out := make([]quote.FareQuote, 0, len(fares))
	for _, f := range fares {
		class := fare.VehicleClass(f.VehicleClass)
		if _, ok := fare.TariffFor(class); !ok {
			continue
		}
		out = append(out, quote.FareQuote{
			Platform:        q.PlatformName(),
			VehicleClass:    class,
			PriceMinorUnits: int(f.Price * 100),
			Currency:        f.Currency,
			ETALabel:        fmt.Sprintf("%d min", f.ETAMinutes),
			Confidence:      quote.ConfidenceHigh,
			Provenance:      quote.ProvenanceLive,
			TimestampMs:     now,
		})
	}
	return out
}
