package burn

import (
	"math"
	"slices"
)

// Wood describes a firewood species. BTU is in millions of BTU per cord.
type Wood struct {
	Name    string  `json:"name"`
	BTU     float64 `json:"btu"`
	Density string  `json:"density"`
}

// MixPart is one species' share of a fuel load.
type MixPart struct {
	Species    string  `json:"species"`
	Percentage float64 `json:"percentage"`
}

// NormalizeBTU maps onto [0,1] between these bounds.
const (
	minBTU = 13.0
	maxBTU = 24.8 // Black Locust
)

var woods = map[string]Wood{
	"White Oak":    {"White Oak", 24.0, "high"},
	"Red Oak":      {"Red Oak", 21.0, "high"},
	"Sugar Maple":  {"Sugar Maple", 18.6, "medium-high"},
	"Yellow Birch": {"Yellow Birch", 21.3, "high"},
	"White Birch":  {"White Birch", 18.0, "medium"},
	"Ash":          {"Ash", 20.0, "high"},
	"Beech":        {"Beech", 21.8, "high"},
	"Hickory":      {"Hickory", 24.6, "very-high"},
	"Black Locust": {"Black Locust", 24.8, "very-high"},
	"Cherry":       {"Cherry", 18.5, "medium"},
	"Elm":          {"Elm", 19.5, "medium-high"},
	"Walnut":       {"Walnut", 19.0, "medium-high"},
	"Pine":         {"Pine", 14.3, "low"},
	"Spruce":       {"Spruce", 13.3, "low"},
	"Poplar":       {"Poplar", 13.7, "low"},
	"Aspen":        {"Aspen", 14.7, "low"},
}

// Species returns the known species names sorted alphabetically.
func Species() []string {
	names := make([]string, 0, len(woods))
	for name := range woods {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// LookupWood returns the Wood for a species name.
func LookupWood(name string) (Wood, bool) {
	w, ok := woods[name]

	return w, ok
}

// SpeciesBTU returns the BTU rating of a species, or zero if unknown.
func SpeciesBTU(name string) float64 {
	return woods[name].BTU
}

// MixBTU returns the weighted BTU of a fuel mix. Unknown species are ignored
// and the result is rescaled when the known percentages do not total 100.
func MixBTU(mix []MixPart) float64 {
	var btu, total float64

	for _, part := range mix {
		w, ok := woods[part.Species]
		if !ok {
			continue
		}

		btu += w.BTU * part.Percentage / 100
		total += part.Percentage
	}

	if total > 0 && total != 100 {
		btu = btu / total * 100
	}

	return btu
}

// ValidMix reports whether the mix percentages total 100.
func ValidMix(mix []MixPart) bool {
	var total float64
	for _, part := range mix {
		total += part.Percentage
	}

	return math.Abs(total-100) < 0.01
}

// DefaultMix is half Sugar Maple, half Yellow Birch.
func DefaultMix() []MixPart {
	return []MixPart{
		{Species: "Sugar Maple", Percentage: 50},
		{Species: "Yellow Birch", Percentage: 50},
	}
}

// NormalizeBTU maps a BTU rating onto [0,1] for the model context.
func NormalizeBTU(btu float64) float64 {
	return clamp01((btu - minBTU) / (maxBTU - minBTU))
}
