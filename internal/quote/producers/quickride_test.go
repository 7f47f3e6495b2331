package producers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"cityhop/internal/geo"
	"cityhop/internal/quote"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQuickRideQuoteParsesLiveResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"fares":[{"vehicle_class":"sedan","price":142.5,"currency":"INR","eta_minutes":6}]}`)
	}))
	defer srv.Close()

	qr := NewQuickRide(srv.URL, "test-key", testLogger())
	quotes := qr.Quote(context.Background(), geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.71, Lng: 77.11})

	if len(quotes) != 1 {
		t.Fatalf("quotes = %d, want 1", len(quotes))
	}
	if quotes[0].PriceMinorUnits != 14250 {
		t.Errorf("price = %d, want 14250", quotes[0].PriceMinorUnits)
	}
	if quotes[0].Provenance != quote.ProvenanceLive {
		t.Errorf("provenance = %s, want live", quotes[0].Provenance)
	}
}

func TestQuickRideQuoteReturnsNilOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	qr := NewQuickRide(srv.URL, "test-key", testLogger())
	quotes := qr.Quote(context.Background(), geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.71, Lng: 77.11})

	if quotes != nil {
		t.Fatalf("expected nil quotes on server error, got %+v", quotes)
	}
}

func TestQuickRideQuoteSkipsUnknownVehicleClass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"fares":[{"vehicle_class":"hovercraft","price":999,"currency":"INR","eta_minutes":1}]}`)
	}))
	defer srv.Close()

	qr := NewQuickRide(srv.URL, "test-key", testLogger())
	quotes := qr.Quote(context.Background(), geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.71, Lng: 77.11})

	if len(quotes) != 0 {
		t.Fatalf("expected unknown vehicle classes to be skipped, got %+v", quotes)
	}
}
