package structure

import (
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/Lucas-MARIE/audio-viz/features"
)

// DropDetector finds energy peaks that stand well above the track average.
// Drops are independent of section boundaries.
type DropDetector struct {
	Sigma      float64 `yaml:"sigma" mapstructure:"sigma"`             // peak height >= mean + Sigma*std
	MinSpacing float64 `yaml:"min_spacing" mapstructure:"min_spacing"` // sec
}

func DefaultDropDetector() DropDetector {
	return DropDetector{Sigma: 2, MinSpacing: 8}
}

// spacingFrames rounds up so the spacing in frames never maps back to less than MinSpacing.
func (d DropDetector) spacingFrames(fs *features.FeatureSet) int {
	return int(math.Ceil(d.MinSpacing*fs.FramesPerSecond() - 1e-9))
}

// Detect returns ordered drop timestamps. The sections argument is accepted for
// tempo- or section-aware detection later and is not read.
func (d DropDetector) Detect(fs *features.FeatureSet, _ []Section) []float64 {
	mean, std := stat.PopMeanStdDev(fs.Energy, nil)
	peaks := findPeaks(fs.Energy, mean+d.Sigma*std, d.spacingFrames(fs))

	drops := make([]float64, len(peaks))
	for i, p := range peaks {
		drops[i] = fs.FrameToTime(p)
	}
	log.WithFields(log.Fields{
		"threshold": mean + d.Sigma*std,
		"drops":     len(drops),
	}).Debug("drops detected")
	return drops
}

// findPeaks returns ascending indices of local maxima of x with height >= height,
// keeping the tallest peaks first and discarding any closer than distance samples
// to a kept one. Flat peaks resolve to their middle sample; end samples never qualify.
func findPeaks(x []float64, height float64, distance int) []int {
	var peaks []int
	for i := 1; i < len(x)-1; {
		if x[i-1] >= x[i] {
			i++
			continue
		}
		ahead := i + 1
		for ahead < len(x)-1 && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] && x[i] >= height {
			peaks = append(peaks, (i+ahead-1)/2)
		}
		i = ahead
	}
	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}

	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	// Tallest first; among equal heights the later peak wins.
	sort.SliceStable(order, func(a, b int) bool {
		ha, hb := x[peaks[order[a]]], x[peaks[order[b]]]
		if ha != hb {
			return ha > hb
		}
		return order[a] > order[b]
	})
	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for _, i := range order {
		if !keep[i] {
			continue
		}
		for k := i - 1; k >= 0 && peaks[i]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := i + 1; k < len(peaks) && peaks[k]-peaks[i] < distance; k++ {
			keep[k] = false
		}
	}

	out := peaks[:0]
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}
