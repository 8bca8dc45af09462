// Package features holds the contract produced by the feature extraction service.
package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidFeatures is returned when a FeatureSet breaks the extraction contract.
var ErrInvalidFeatures = errors.New("invalid feature set")

// frameEps absorbs float error when a frame time is converted back to a frame index.
const frameEps = 1e-9

// FeatureSet is the frame-indexed output of the extraction service. Read-only to the engines.
type FeatureSet struct {
	Duration   float64 `json:"duration"` // sec
	SampleRate int     `json:"sample_rate"`
	HopLength  int     `json:"hop_length"`

	Tempo     float64   `json:"tempo"` // BPM
	BeatTimes []float64 `json:"beat_times"`

	// Per-frame arrays, one value per frame
	Energy            []float64 `json:"energy"`             // RMS
	SpectralCentroid  []float64 `json:"spectral_centroid"`  // Hz
	SpectralBandwidth []float64 `json:"spectral_bandwidth"` // Hz
	ZeroCrossingRate  []float64 `json:"zero_crossing_rate"`
	OnsetStrength     []float64 `json:"onset_strength"`

	MFCC   [][]float64 `json:"mfcc"`   // [coefficient][frame]
	Chroma [][]float64 `json:"chroma"` // [pitch class][frame]
}

// Frames is the number of analysis frames.
func (fs *FeatureSet) Frames() int { return len(fs.Energy) }

// FramesPerSecond is sample_rate / hop_length.
func (fs *FeatureSet) FramesPerSecond() float64 {
	return float64(fs.SampleRate) / float64(fs.HopLength)
}

// FrameToTime maps a frame index to seconds.
func (fs *FeatureSet) FrameToTime(f int) float64 {
	return float64(f) * float64(fs.HopLength) / float64(fs.SampleRate)
}

// TimeToFrame maps seconds to the frame that contains them (floor).
func (fs *FeatureSet) TimeToFrame(t float64) int {
	return int(math.Floor(t*fs.FramesPerSecond() + frameEps))
}

// MFCCMatrix returns the cepstral features as a coefficient × frame matrix.
func (fs *FeatureSet) MFCCMatrix() *mat.Dense {
	return denseOf(fs.MFCC)
}

// ChromaMatrix returns the harmonic features as a pitch-class × frame matrix.
func (fs *FeatureSet) ChromaMatrix() *mat.Dense {
	return denseOf(fs.Chroma)
}

func denseOf(rows [][]float64) *mat.Dense {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	r, c := len(rows), len(rows[0])
	data := make([]float64, 0, r*c)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(r, c, data)
}

// Validate checks the contract: positive scale factors and equal frame counts everywhere.
func (fs *FeatureSet) Validate() error {
	if fs == nil {
		return fmt.Errorf("%w: nil", ErrInvalidFeatures)
	}
	if fs.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %.3f", ErrInvalidFeatures, fs.Duration)
	}
	if fs.SampleRate <= 0 || fs.HopLength <= 0 {
		return fmt.Errorf("%w: sample_rate=%d hop_length=%d", ErrInvalidFeatures, fs.SampleRate, fs.HopLength)
	}
	n := len(fs.Energy)
	if n == 0 {
		return fmt.Errorf("%w: energy is empty", ErrInvalidFeatures)
	}
	arrays := []struct {
		name string
		v    []float64
	}{
		{"spectral_centroid", fs.SpectralCentroid},
		{"spectral_bandwidth", fs.SpectralBandwidth},
		{"zero_crossing_rate", fs.ZeroCrossingRate},
		{"onset_strength", fs.OnsetStrength},
	}
	for _, a := range arrays {
		if len(a.v) != n {
			return fmt.Errorf("%w: %s has %d frames, energy has %d", ErrInvalidFeatures, a.name, len(a.v), n)
		}
	}
	if err := checkMatrix("mfcc", fs.MFCC, n); err != nil {
		return err
	}
	if err := checkMatrix("chroma", fs.Chroma, n); err != nil {
		return err
	}
	for i := 1; i < len(fs.BeatTimes); i++ {
		if fs.BeatTimes[i] < fs.BeatTimes[i-1] {
			return fmt.Errorf("%w: beat_times not ordered at %d", ErrInvalidFeatures, i)
		}
	}
	return nil
}

func checkMatrix(name string, m [][]float64, frames int) error {
	if len(m) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidFeatures, name)
	}
	for i, row := range m {
		if len(row) != frames {
			return fmt.Errorf("%w: %s row %d has %d frames, energy has %d", ErrInvalidFeatures, name, i, len(row), frames)
		}
	}
	return nil
}

// Decode parses and validates a FeatureSet payload.
func Decode(b []byte) (*FeatureSet, error) {
	var fs FeatureSet
	if err := json.Unmarshal(b, &fs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeatures, err)
	}
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	return &fs, nil
}

// Load reads a FeatureSet JSON file, as dumped by the extraction service.
func Load(path string) (*FeatureSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fs, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fs, nil
}
