package producers

import (
	"context"
	"testing"

	"cityhop/internal/geo"
)

func TestCityGoQuoteAlwaysReturnsNil(t *testing.T) {
	c := NewCityGo()
	quotes := c.Quote(context.Background(), geo.Coordinate{Lat: 28.70, Lng: 77.10}, geo.Coordinate{Lat: 28.71, Lng: 77.11})
	if quotes != nil {
		t.Fatalf("expected nil quotes, got %+v", quotes)
	}
	if c.PlatformName() != "citygo" {
		t.Fatalf("platform name = %q, want citygo", c.PlatformName())
	}
}
