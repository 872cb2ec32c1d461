package burn

import (
	"fmt"
	"math"
	"strings"
)

// Summary renders r as a markdown burn analysis with recommendations. A nil
// report renders as the empty string.
func Summary(r *AnalysisReport) string {
	if r == nil {
		return ""
	}

	m, f, p := r.Metrics, r.Flags, r.Params
	horizon := p.Horizon()

	var b strings.Builder

	b.WriteString("## Burn Prediction Analysis\n\n")

	b.WriteString("**Current Conditions:**\n")
	fmt.Fprintf(&b, "- Current Temperature: %s\n", degrees(m.CurrentTemp))
	fmt.Fprintf(&b, "- Outdoor Temperature: %s\n", degrees(p.OutdoorTemp))
	fmt.Fprintf(&b, "- Firebox Fill Level: %g%%\n", p.FillLevel)
	fmt.Fprintf(&b, "- Prediction Window: %s hours\n\n", tenths(horizon))

	b.WriteString("**Predicted Trajectory:**\n")

	switch {
	case f.IsRising:
		fmt.Fprintf(&b, "- **Rising Phase**: temperature expected to climb initially, peaking at %s\n",
			degrees(m.PredictedMax))
	case f.IsSteady:
		fmt.Fprintf(&b, "- **Steady Burn**: temperature should hold around %s\n", degrees(m.PredictedAvg))
	case f.IsFalling:
		b.WriteString("- **Declining Phase**: temperature expected to gradually decrease\n")
	}

	fmt.Fprintf(&b, "- Temperature Range: %s - %s\n", degrees(m.PredictedMin), degrees(m.PredictedMax))
	fmt.Fprintf(&b, "- Average Temperature: %s\n", degrees(m.PredictedAvg))
	fmt.Fprintf(&b, "- End Temperature: %s\n\n", degrees(m.PredictedEnd))

	b.WriteString("**Burn Phases:**\n")
	fmt.Fprintf(&b, "- Active Burn (>%g°F): %s hours\n", ActiveBurnThreshold, tenths(m.ActiveBurnHours))
	fmt.Fprintf(&b, "- Coaling Phase (%g-%g°F): %s hours\n", CoalingThreshold, ActiveBurnThreshold,
		tenths(m.CoalingHours))

	if m.HoursUntilReload < horizon {
		fmt.Fprintf(&b, "- **Reload Recommended**: in approximately %s hours (when temp drops below %g°F)\n\n",
			tenths(m.HoursUntilReload), ReloadThreshold)
	} else {
		fmt.Fprintf(&b, "- **No Reload Needed**: should hold temperature through the %s hour window\n\n",
			tenths(horizon))
	}

	b.WriteString("**Pattern Match:**\n")

	if f.IsSimilarPattern {
		fmt.Fprintf(&b, "- Prediction closely matches the selected historical pattern (%.0f%% difference)\n",
			r.PatternSimilarity)
		b.WriteString("- This suggests consistent burning conditions\n\n")
	} else {
		fmt.Fprintf(&b, "- Prediction differs from the selected pattern by %.0f%%\n", r.PatternSimilarity)
		b.WriteString("- This could be due to different outdoor temps, fill levels, or wood species\n\n")
	}

	b.WriteString("**Recommendations:**\n")

	switch {
	case m.HoursUntilReload < 2:
		b.WriteString("- Consider reloading soon to maintain heat\n")
	case m.HoursUntilReload < 4:
		b.WriteString("- Plan to reload in the next few hours\n")
	default:
		b.WriteString("- Current load should last comfortably\n")
	}

	if p.OutdoorTemp < 20 {
		b.WriteString("- Cold outdoor temps may increase heat loss, monitor closely\n")
	}

	if p.FillLevel < 50 {
		b.WriteString("- Partial load will burn faster, consider fuller loads for longer burns\n")
	}

	b.WriteString("\n**Note:** This is an experimental prediction. Actual results vary with draft settings, " +
		"wood moisture, and other factors.\n")

	return b.String()
}

// QuickSummary renders r as a single sentence.
func QuickSummary(r *AnalysisReport) string {
	if r == nil {
		return ""
	}

	m, horizon := r.Metrics, r.Params.Horizon()

	if m.HoursUntilReload < horizon {
		return fmt.Sprintf("Predicted to burn for %s hours, reaching %s before reload needed.",
			tenths(m.HoursUntilReload), degrees(m.PredictedMax))
	}

	return fmt.Sprintf("Predicted to maintain %s average over %s hours, no reload needed.",
		degrees(m.PredictedAvg), tenths(horizon))
}

func degrees(t float64) string {
	return fmt.Sprintf("%.0f°F", math.Round(t))
}

func tenths(h float64) string {
	return fmt.Sprintf("%g", math.Round(h*10)/10)
}
