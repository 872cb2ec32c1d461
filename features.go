package burn

// FeatureVector is the per-timestep model input derived from a temperature
// run.
//
// RateOfChange is not clamped; fast transients can exceed ±1.
type FeatureVector struct {
	NormalizedTemp float64 `json:"normalized_temp"`
	RateOfChange   float64 `json:"rate_of_change"`
	RollingAvg     float64 `json:"rolling_avg"`
}

// rateScale converts a °F step difference into the RateOfChange feature.
const rateScale = 100.0

// rollingWindow is the number of trailing points in RollingAvg.
const rollingWindow = 3

// NormalizeTemperature maps t in °F onto [0,1], clamping values outside the
// normalization range. NaN normalizes to 0.
func NormalizeTemperature(t float64) float64 {
	return clamp01(t / MaxTemperature)
}

// DenormalizeTemperature maps a normalized value back to °F.
func DenormalizeTemperature(n float64) float64 {
	return n * MaxTemperature
}

// EngineerFeatures returns one FeatureVector per temperature. An empty input
// yields an empty output.
func EngineerFeatures(temps []float64) []FeatureVector {
	features := make([]FeatureVector, len(temps))

	for i, t := range temps {
		var rate float64
		if i > 0 {
			rate = (t - temps[i-1]) / rateScale
		}

		start := max(0, i-rollingWindow+1)

		var sum float64
		for _, v := range temps[start : i+1] {
			sum += v
		}

		features[i] = FeatureVector{
			NormalizedTemp: NormalizeTemperature(t),
			RateOfChange:   rate,
			RollingAvg:     NormalizeTemperature(sum / float64(i+1-start)),
		}
	}

	return features
}

func (f FeatureVector) slice() []float64 {
	return []float64{f.NormalizedTemp, f.RateOfChange, f.RollingAvg}
}
