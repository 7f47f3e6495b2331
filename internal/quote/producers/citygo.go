package producers

import (
	"context"

	"cityhop/internal/geo"
	"cityhop/internal/quote"
)

// CityGo models a platform this deployment has no live integration
// for. It demonstrates the not-applicable path: a producer returning
// no quotes for every request, as opposed to a producer that failed,
// so every CityGo quote the caller sees is the aggregator's fallback
// estimate attributed to this platform name.
type CityGo struct{}

func NewCityGo() *CityGo { return &CityGo{} }

func (c *CityGo) PlatformName() string { return "citygo" }

func (c *CityGo) Quote(ctx context.Context, pickup, drop geo.Coordinate) []quote.FareQuote {
	return nil
}
