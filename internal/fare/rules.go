// Package fare holds the tariff tables shared by the fallback
// estimator and the bus itinerary fare calculation.
package fare

import "fmt"

// VehicleClass identifies a ride-hailing vehicle tier.
type VehicleClass string

const (
	ClassBike  VehicleClass = "bike"
	ClassAuto  VehicleClass = "auto"
	ClassMini  VehicleClass = "mini"
	ClassSedan VehicleClass = "sedan"
	ClassSUV   VehicleClass = "suv"
)

// AllClasses is the fixed fallback menu, in a stable display order.
var AllClasses = []VehicleClass{ClassBike, ClassAuto, ClassMini, ClassSedan, ClassSUV}

// Tariff is the base/per-km/minimum fare for one vehicle class, in
// minor currency units (e.g. paise).
type Tariff struct {
	BaseFare  int
	PerKmFare int
	MinFare   int
}

// Table is the default tariff table, indexed by vehicle class.
var Table = map[VehicleClass]Tariff{
	ClassBike:  {BaseFare: 15, PerKmFare: 4, MinFare: 20},
	ClassAuto:  {BaseFare: 25, PerKmFare: 8, MinFare: 35},
	ClassMini:  {BaseFare: 40, PerKmFare: 11, MinFare: 60},
	ClassSedan: {BaseFare: 55, PerKmFare: 14, MinFare: 80},
	ClassSUV:   {BaseFare: 80, PerKmFare: 18, MinFare: 120},
}

// TariffFor returns the tariff for class, or false if unknown.
func TariffFor(class VehicleClass) (Tariff, bool) {
	t, ok := Table[class]
	return t, ok
}

// busSlabEntry maps an upper distance bound (km) to a flat fare. Slabs are
// checked in ascending order; the last entry is the catch-all.
type busSlabEntry struct {
	maxKm float64
	fare  int
}

var busSlabs = []busSlabEntry{
	{maxKm: 4, fare: 5},
	{maxKm: 10, fare: 10},
	{maxKm: 15, fare: 15},
	{maxKm: 20, fare: 20},
	{maxKm: -1, fare: 25}, // -1 = no upper bound
}

// BusFare returns the flat bus fare for a leg of the given distance.
func BusFare(distanceKm float64) int {
	for _, slab := range busSlabs {
		if slab.maxKm < 0 || distanceKm <= slab.maxKm {
			return slab.fare
		}
	}
	return busSlabs[len(busSlabs)-1].fare
}

func (t Tariff) String() string {
	return fmt.Sprintf("base=%d perKm=%d min=%d", t.BaseFare, t.PerKmFare, t.MinFare)
}
