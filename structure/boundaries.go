package structure

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Lucas-MARIE/audio-viz/features"
)

// Estimate bounds the automatic section count.
type Estimate struct {
	SecondsPerSection float64 `yaml:"seconds_per_section" mapstructure:"seconds_per_section"`
	MinSections       int     `yaml:"min_sections" mapstructure:"min_sections"`
	MaxSections       int     `yaml:"max_sections" mapstructure:"max_sections"`
	ContextWidth      int     `yaml:"context_width" mapstructure:"context_width"` // frames, ~1s at default hop
}

func DefaultEstimate() Estimate {
	return Estimate{SecondsPerSection: 15, MinSections: 4, MaxSections: 20, ContextWidth: 43}
}

// Sections returns the section count for a track of the given duration:
// duration / SecondsPerSection truncated, clamped to [MinSections, MaxSections].
func (e Estimate) Sections(duration float64) int {
	n := int(duration / e.SecondsPerSection)
	if n < e.MinSections {
		n = e.MinSections
	}
	if n > e.MaxSections {
		n = e.MaxSections
	}
	return n
}

// Detector produces the ordered boundary times [0, t1, ..., duration].
type Detector struct {
	Estimate  Estimate
	Clusterer Clusterer
}

func NewDetector(e Estimate, c Clusterer) *Detector {
	if c == nil {
		c = Agglomerative{}
	}
	return &Detector{Estimate: e, Clusterer: c}
}

// Boundaries partitions fs into at most n sections (n <= 0 means estimate from duration).
// Start frames that collapse onto a neighbour or fall past the last frame are
// dropped, so every returned interval covers at least one frame.
func (d *Detector) Boundaries(ctx context.Context, fs *features.FeatureSet, n int) ([]float64, error) {
	if n <= 0 {
		n = d.Estimate.Sections(fs.Duration)
	}
	frames, err := d.Clusterer.Boundaries(ctx, fs.MFCCMatrix(), n, d.Estimate.ContextWidth)
	if err != nil {
		return nil, fmt.Errorf("boundaries: %w", err)
	}

	endFrame := fs.TimeToFrame(fs.Duration)
	if endFrame > fs.Frames() {
		endFrame = fs.Frames()
	}
	if endFrame <= 0 {
		return []float64{0}, nil
	}

	times := []float64{0}
	last := 0
	for _, f := range frames {
		if f <= last || f >= endFrame {
			continue
		}
		times = append(times, fs.FrameToTime(f))
		last = f
	}
	times = append(times, fs.Duration)

	log.WithFields(log.Fields{
		"requested": n,
		"sections":  len(times) - 1,
	}).Debug("boundaries detected")
	return times, nil
}

// Segment runs boundary detection, classification and refinement.
func Segment(ctx context.Context, fs *features.FeatureSet, d *Detector, c *Classifier, n int) ([]Section, error) {
	times, err := d.Boundaries(ctx, fs, n)
	if err != nil {
		return nil, err
	}
	total := len(times) - 1
	sections := make([]Section, 0, total)
	for i := 0; i < total; i++ {
		sec, ok := c.Classify(fs, times[i], times[i+1], len(sections), total)
		if !ok {
			log.WithFields(log.Fields{"start": times[i], "end": times[i+1]}).Debug("empty interval skipped")
			continue
		}
		sections = append(sections, sec)
	}
	if relabelled := Refine(sections); relabelled > 0 {
		log.WithField("relabelled", relabelled).Debug("classifications refined")
	}
	log.WithField("summary", Summary(sections)).Debug("classification done")
	return sections, nil
}
