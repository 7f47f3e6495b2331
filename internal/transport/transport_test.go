package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
	"cityhop/internal/gtfsdata"
	"cityhop/internal/planner"
	"cityhop/internal/quote"
	"cityhop/internal/schedule"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProducer struct {
	quotes []quote.FareQuote
}

func (s *stubProducer) PlatformName() string { return "quickride" }
func (s *stubProducer) Quote(ctx context.Context, pickup, drop geo.Coordinate) []quote.FareQuote {
	return s.quotes
}

func testBoundary() *Boundary {
	idx := schedule.Build(&gtfsdata.Feed{Disabled: true, DisabledCause: "no feed"})
	pln := planner.New(idx)

	prod := &stubProducer{quotes: []quote.FareQuote{
		{Platform: "quickride", VehicleClass: fare.ClassSedan, PriceMinorUnits: 9900, Currency: "INR", Provenance: quote.ProvenanceLive, Confidence: quote.ConfidenceHigh},
	}}
	agg := quote.NewAggregator([]quote.Producer{prod}, quote.NewFallbackEstimator("INR"), quote.NewCache(time.Minute), time.Second, testLogger())

	return NewBoundary(pln, agg, testLogger())
}

func TestCompareFaresHandlesValidRequest(t *testing.T) {
	b := testBoundary()

	body := bytes.NewBufferString(`{"pickup":{"lat":28.70,"lng":77.10},"drop":{"lat":28.71,"lng":77.11}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/compare-fares", body)
	rec := httptest.NewRecorder()

	b.CompareFares(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp compareFaresResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Count == 0 {
		t.Fatalf("resp = %+v, want success with quotes", resp)
	}
}

func TestCompareFaresRejectsInvalidCoordinates(t *testing.T) {
	b := testBoundary()

	body := bytes.NewBufferString(`{"pickup":{"lat":999,"lng":77.10},"drop":{"lat":28.71,"lng":77.11}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/compare-fares", body)
	rec := httptest.NewRecorder()

	b.CompareFares(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCompareFaresRejectsMalformedBody(t *testing.T) {
	b := testBoundary()

	req := httptest.NewRequest(http.MethodPost, "/api/compare-fares", bytes.NewBufferString(`{not json`))
	rec := httptest.NewRecorder()

	b.CompareFares(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBusRoutesReturnsEmptySuccessForDisabledFeed(t *testing.T) {
	b := testBoundary()

	body := bytes.NewBufferString(`{"pickup":{"lat":28.70,"lng":77.10},"drop":{"lat":28.71,"lng":77.11}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/bus-routes", body)
	rec := httptest.NewRecorder()

	b.BusRoutes(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with no feed loaded", rec.Code)
	}

	var resp busRoutesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Count != 0 {
		t.Fatalf("resp = %+v, want success with zero routes", resp)
	}
}

func TestHealthzAlwaysOK(t *testing.T) {
	h := NewHealth(func() bool { return false })
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadyzReflectsFeedState(t *testing.T) {
	ready := false
	h := NewHealth(func() bool { return ready })

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 while not ready", rec.Code)
	}

	ready = true
	rec = httptest.NewRecorder()
	h.Readyz(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 once ready", rec.Code)
	}
}
