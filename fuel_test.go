package burn

import (
	"slices"
	"testing"
	"time"
)

func TestSpecies(t *testing.T) {
	names := Species()

	if len(names) != 16 {
		t.Errorf("len(Species()) = %d, want 16", len(names))
	}

	if !slices.IsSorted(names) {
		t.Errorf("Species() not sorted: %v", names)
	}

	for _, name := range names {
		w, ok := LookupWood(name)
		if !ok || w.Name != name {
			t.Errorf("LookupWood(%q) = %+v, %v", name, w, ok)
		}
	}
}

func TestMixBTU(t *testing.T) {
	tests := []struct {
		name string
		mix  []MixPart
		want float64
	}{
		{"default", DefaultMix(), (18.6 + 21.3) / 2},
		{"single", []MixPart{{"Hickory", 100}}, 24.6},
		{"rescaled", []MixPart{{"Pine", 25}, {"Red Oak", 25}}, (14.3 + 21) / 2},
		{"unknown", []MixPart{{"Balsa", 100}}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		if got := MixBTU(tt.mix); !closeTo(got, tt.want) {
			t.Errorf("%s: MixBTU() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValidMix(t *testing.T) {
	if !ValidMix(DefaultMix()) {
		t.Error("default mix invalid")
	}

	if ValidMix([]MixPart{{"Ash", 60}}) {
		t.Error("60% mix reported valid")
	}
}

func TestNormalizeBTU(t *testing.T) {
	if got := NormalizeBTU(SpeciesBTU("Black Locust")); got != 1 {
		t.Errorf("NormalizeBTU(Black Locust) = %v, want 1", got)
	}

	if got := NormalizeBTU(0); got != 0 {
		t.Errorf("NormalizeBTU(0) = %v, want 0", got)
	}

	if got := SpeciesBTU("Balsa"); got != 0 {
		t.Errorf("SpeciesBTU(unknown) = %v, want 0", got)
	}
}

func TestConditionsContext(t *testing.T) {
	c := Conditions{
		OutdoorTemp: 40,
		FillLevel:   150,
		FuelBTU:     13,
		At:          time.Date(2025, 1, 10, 18, 30, 0, 0, time.UTC),
	}

	cv := c.Context()

	if !closeTo(cv.OutdoorTemp, 0.5) {
		t.Errorf("OutdoorTemp = %v, want 0.5", cv.OutdoorTemp)
	}

	if cv.FillLevel != 1 {
		t.Errorf("FillLevel = %v, want 1", cv.FillLevel)
	}

	if cv.FuelEnergyDensity != 0 {
		t.Errorf("FuelEnergyDensity = %v, want 0", cv.FuelEnergyDensity)
	}

	if !closeTo(cv.HourOfDay, 0.75) {
		t.Errorf("HourOfDay = %v, want 0.75", cv.HourOfDay)
	}

	if c.Horizon() != DefaultHorizonHours {
		t.Errorf("Horizon() = %v, want %v", c.Horizon(), DefaultHorizonHours)
	}

	c.PredictionHours = 3
	if c.Horizon() != 3 {
		t.Errorf("Horizon() = %v, want 3", c.Horizon())
	}
}
