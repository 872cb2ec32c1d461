package burn

// Band is a confidence interval around one forecast temperature.
type Band struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ConfidenceBands returns a proportional ±level band for each temperature,
// with the lower bound floored at zero. A negative level is treated as zero.
// The band is a fixed heuristic, not an estimate from validation residuals.
func ConfidenceBands(temps []float64, level float64) []Band {
	level = max(0, level)
	bands := make([]Band, len(temps))

	for i, t := range temps {
		bands[i] = Band{
			Lower: max(0, t*(1-level)),
			Upper: t * (1 + level),
		}
	}

	return bands
}
