package fare

import "testing"

func TestBusFareSlabs(t *testing.T) {
	cases := []struct {
		km   float64
		want int
	}{
		{0.5, 5},
		{4, 5},
		{4.1, 10},
		{10, 10},
		{10.5, 15},
		{15, 15},
		{20, 20},
		{20.1, 25},
		{500, 25},
	}
	for _, tc := range cases {
		if got := BusFare(tc.km); got != tc.want {
			t.Errorf("BusFare(%v) = %d, want %d", tc.km, got, tc.want)
		}
	}
}

func TestTariffForKnownAndUnknown(t *testing.T) {
	if _, ok := TariffFor(ClassSedan); !ok {
		t.Fatal("expected sedan tariff to exist")
	}
	if _, ok := TariffFor(VehicleClass("blimp")); ok {
		t.Fatal("expected unknown class to be absent")
	}
}

func TestAllClassesNonEmptyAndTabled(t *testing.T) {
	if len(AllClasses) == 0 {
		t.Fatal("expected a non-empty fallback menu")
	}
	for _, c := range AllClasses {
		if _, ok := Table[c]; !ok {
			t.Errorf("class %s listed in AllClasses but missing from Table", c)
		}
	}
}
