package structure

import (
	"github.com/Lucas-MARIE/audio-viz/features"
)

// block describes a stretch of synthetic audio with constant features.
type block struct {
	Seconds    float64
	Energy     float64
	Brightness float64
	Timbre     int // index of the MFCC axis this block points along
}

const (
	testSampleRate = 1000
	testHopLength  = 100 // 10 frames per second
	testTimbreDims = 8
)

// synthTrack builds a FeatureSet whose blocks have orthogonal MFCC directions,
// so their boundaries are unambiguous for the clusterer.
func synthTrack(blocks ...block) *features.FeatureSet {
	fs := &features.FeatureSet{
		SampleRate: testSampleRate,
		HopLength:  testHopLength,
		Tempo:      128,
		MFCC:       make([][]float64, testTimbreDims),
		Chroma:     make([][]float64, 2),
	}
	for _, b := range blocks {
		n := int(b.Seconds * testSampleRate / testHopLength)
		for i := 0; i < n; i++ {
			fs.Energy = append(fs.Energy, b.Energy)
			fs.SpectralCentroid = append(fs.SpectralCentroid, b.Brightness)
			fs.SpectralBandwidth = append(fs.SpectralBandwidth, 1800)
			fs.ZeroCrossingRate = append(fs.ZeroCrossingRate, 0.08)
			fs.OnsetStrength = append(fs.OnsetStrength, b.Energy*10)
			for c := range fs.MFCC {
				v := 0.0
				if c == b.Timbre%testTimbreDims {
					v = 1
				}
				fs.MFCC[c] = append(fs.MFCC[c], v)
			}
			fs.Chroma[0] = append(fs.Chroma[0], 0.2)
			fs.Chroma[1] = append(fs.Chroma[1], 0.6)
		}
		fs.Duration += b.Seconds
	}
	return fs
}
