package burn

import "time"

// ContextVector is the situational input held constant across a forecast
// horizon. All entries are normalized to [0,1].
type ContextVector struct {
	OutdoorTemp       float64 `json:"outdoor_temp"`
	FillLevel         float64 `json:"fill_level"`
	FuelEnergyDensity float64 `json:"fuel_energy_density"`
	HourOfDay         float64 `json:"hour_of_day"`
}

// Outdoor temperatures are normalized over this °F range.
const (
	minOutdoorTemp = -20.0
	maxOutdoorTemp = 100.0
)

// Conditions are the caller facing forecast parameters in physical units.
type Conditions struct {
	OutdoorTemp     float64   `json:"outdoor_temp"`     // °F
	FillLevel       float64   `json:"fill_level"`       // percent of firebox
	FuelBTU         float64   `json:"fuel_btu"`         // MBTU per cord
	PredictionHours float64   `json:"prediction_hours"` // forecast horizon
	At              time.Time `json:"at,omitzero"`      // forecast time, defaults to now
}

// Context normalizes c into a ContextVector.
func (c Conditions) Context() ContextVector {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}

	return ContextVector{
		OutdoorTemp:       clamp01((c.OutdoorTemp - minOutdoorTemp) / (maxOutdoorTemp - minOutdoorTemp)),
		FillLevel:         clamp01(c.FillLevel / 100),
		FuelEnergyDensity: NormalizeBTU(c.FuelBTU),
		HourOfDay:         float64(at.Hour()) / 24,
	}
}

// Horizon returns the forecast horizon in hours, falling back to
// DefaultHorizonHours.
func (c Conditions) Horizon() float64 {
	if c.PredictionHours <= 0 {
		return DefaultHorizonHours
	}

	return c.PredictionHours
}

func (v ContextVector) slice() []float64 {
	return []float64{v.OutdoorTemp, v.FillLevel, v.FuelEnergyDensity, v.HourOfDay}
}
