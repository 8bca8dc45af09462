package visual

import "math"

// Band is one energy bucket of the advisory suggestion.
type Band struct {
	MinEnergy float64
	Inclusive bool // energy == MinEnergy belongs to this band
	Shaders   []int
}

func (b Band) admits(energy float64) bool {
	if b.Inclusive {
		return energy >= b.MinEnergy
	}
	return energy > b.MinEnergy
}

// DefaultBands are ordered from the most energetic down; the last one catches the rest.
func DefaultBands() []Band {
	return []Band{
		{MinEnergy: 0.12, Shaders: []int{13, 14, 15, 16, 17, 18}},
		{MinEnergy: 0.08, Shaders: []int{10, 11, 12, 15}},
		{MinEnergy: 0.05, Inclusive: true, Shaders: []int{3, 4, 5, 6, 7, 8}},
		{MinEnergy: math.Inf(-1), Inclusive: true, Shaders: []int{0, 1, 2, 19}},
	}
}

// SuggestShader picks a shader for a live energy reading, independent of any section.
// Brightness is part of the request but does not influence the band.
func SuggestShader(rng Rand, bands []Band, energy, brightness float64) int {
	for _, b := range bands {
		if b.admits(energy) {
			return b.Shaders[rng.Intn(len(b.Shaders))]
		}
	}
	last := bands[len(bands)-1]
	return last.Shaders[rng.Intn(len(last.Shaders))]
}
