// Package transport is the TransportBoundary: request validation and
// result shaping for external HTTP callers. It is the sole place
// where internal errors are translated into HTTP status codes (§7);
// nothing below this layer is allowed to panic or surface a raw error
// to the caller.
package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cityhop/internal/fare"
	"cityhop/internal/planner"
	"cityhop/internal/quote"
)

// Boundary holds the handlers for the two core endpoints:
// /api/compare-fares and /api/bus-routes.
type Boundary struct {
	planner    *planner.Planner
	aggregator *quote.Aggregator
	classes    []fare.VehicleClass
	logger     *slog.Logger

	requestCount atomic.Int64
}

func NewBoundary(p *planner.Planner, agg *quote.Aggregator, logger *slog.Logger) *Boundary {
	return &Boundary{
		planner:    p,
		aggregator: agg,
		classes:    fare.AllClasses,
		logger:     logger.With("component", "transport"),
	}
}

// RequestCount reports the total number of requests served, for /stats.
func (b *Boundary) RequestCount() int64 { return b.requestCount.Load() }

// CompareFares handles POST /api/compare-fares.
func (b *Boundary) CompareFares(w http.ResponseWriter, r *http.Request) {
	b.requestCount.Add(1)
	start := time.Now()

	var req coordinateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pickup, drop, err := req.parse()
	if err != nil {
		respondFromError(w, err)
		return
	}

	requestID := uuid.New().String()
	quotes := b.aggregator.Compare(r.Context(), requestID, pickup, drop, b.classes)

	estimates := make([]wireFareEstimate, 0, len(quotes))
	for _, q := range quotes {
		estimates = append(estimates, toWireEstimate(q))
	}

	b.logger.Debug("compare-fares served", "request_id", requestID, "quotes", len(estimates),
		"duration_ms", time.Since(start).Milliseconds())

	respondJSON(w, http.StatusOK, compareFaresResponse{
		Success:   true,
		Count:     len(estimates),
		Estimates: estimates,
	})
}

// BusRoutes handles POST /api/bus-routes.
func (b *Boundary) BusRoutes(w http.ResponseWriter, r *http.Request) {
	b.requestCount.Add(1)
	start := time.Now()

	var req coordinateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pickup, drop, err := req.parse()
	if err != nil {
		respondFromError(w, err)
		return
	}

	// FeedUnavailable is not an error: an empty, successful result is
	// returned either way, since FindItineraries already yields []
	// for a disabled planner (§7).
	itineraries := b.planner.FindItineraries(pickup, drop)

	routes := make([]busRouteResponse, 0, len(itineraries))
	for _, it := range itineraries {
		routes = append(routes, toWireBusRoute(it))
	}

	b.logger.Debug("bus-routes served", "routes", len(routes), "duration_ms", time.Since(start).Milliseconds())

	respondJSON(w, http.StatusOK, busRoutesResponse{
		Success: true,
		Count:   len(routes),
		Routes:  routes,
	})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Success: false, Error: message})
}

// respondFromError translates a sentinel error from parse() into the
// matching HTTP status. Anything unrecognized is an Unexpected error
// (§7): HTTP 500, generic message, full detail only in the log.
func respondFromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInputInvalid):
		respondError(w, http.StatusBadRequest, "pickup and drop must both be valid coordinates")
	default:
		slog.Default().Error("unexpected transport error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
