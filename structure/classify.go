package structure

import (
	"gonum.org/v1/gonum/stat"

	"github.com/Lucas-MARIE/audio-viz/features"
)

// Thresholds parameterise the classification cascade. Energy is on the extraction
// service's RMS scale, brightness in Hz.
type Thresholds struct {
	IntroPosition     float64 `yaml:"intro_position" mapstructure:"intro_position"`
	OutroPosition     float64 `yaml:"outro_position" mapstructure:"outro_position"`
	QuietEnergy       float64 `yaml:"quiet_energy" mapstructure:"quiet_energy"`
	FinalChorusEnergy float64 `yaml:"final_chorus_energy" mapstructure:"final_chorus_energy"`

	PeakEnergy     float64 `yaml:"peak_energy" mapstructure:"peak_energy"`
	PeakBrightness float64 `yaml:"peak_brightness" mapstructure:"peak_brightness"`
	DropEnergy     float64 `yaml:"drop_energy" mapstructure:"drop_energy"`

	ChorusEnergy     float64 `yaml:"chorus_energy" mapstructure:"chorus_energy"`
	ChorusBrightness float64 `yaml:"chorus_brightness" mapstructure:"chorus_brightness"`

	VariationEnergy float64 `yaml:"variation_energy" mapstructure:"variation_energy"`
	BuildupEnergy   float64 `yaml:"buildup_energy" mapstructure:"buildup_energy"`

	VerseMinEnergy float64 `yaml:"verse_min_energy" mapstructure:"verse_min_energy"`
	VerseMaxEnergy float64 `yaml:"verse_max_energy" mapstructure:"verse_max_energy"`
	BridgeEnergy   float64 `yaml:"bridge_energy" mapstructure:"bridge_energy"`
}

// DefaultThresholds returns the empirically tuned cascade thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		IntroPosition:     0.15,
		OutroPosition:     0.85,
		QuietEnergy:       0.03,
		FinalChorusEnergy: 0.08,
		PeakEnergy:        0.12,
		PeakBrightness:    2500,
		DropEnergy:        0.15,
		ChorusEnergy:      0.08,
		ChorusBrightness:  2000,
		VariationEnergy:   0.015,
		BuildupEnergy:     0.06,
		VerseMinEnergy:    0.05,
		VerseMaxEnergy:    0.09,
		BridgeEnergy:      0.04,
	}
}

// Rule is one step of the cascade: the first rule whose Match holds decides the type.
type Rule struct {
	Name   string
	Match  func(s Stats, position float64) bool
	Result SectionType
}

// Rules builds the ordered cascade for th. The last rule always matches.
func Rules(th Thresholds) []Rule {
	return []Rule{
		{"intro", func(s Stats, pos float64) bool {
			return pos < th.IntroPosition && s.Energy < th.QuietEnergy
		}, Intro},
		{"outro", func(s Stats, pos float64) bool {
			return pos > th.OutroPosition && s.Energy < th.QuietEnergy
		}, Outro},
		{"final_chorus", func(s Stats, pos float64) bool {
			return pos > th.OutroPosition && s.Energy > th.FinalChorusEnergy
		}, FinalChorus},
		{"drop", func(s Stats, _ float64) bool {
			return s.Energy > th.PeakEnergy && s.Brightness > th.PeakBrightness && s.Energy > th.DropEnergy
		}, Drop},
		{"peak_chorus", func(s Stats, _ float64) bool {
			return s.Energy > th.PeakEnergy && s.Brightness > th.PeakBrightness
		}, Chorus},
		{"chorus", func(s Stats, _ float64) bool {
			return s.Energy > th.ChorusEnergy && s.Brightness > th.ChorusBrightness
		}, Chorus},
		{"buildup", func(s Stats, _ float64) bool {
			return s.EnergyStd > th.VariationEnergy && s.Energy > th.BuildupEnergy
		}, Buildup},
		{"breakdown", func(s Stats, _ float64) bool {
			return s.EnergyStd > th.VariationEnergy
		}, Breakdown},
		{"verse", func(s Stats, _ float64) bool {
			return s.Energy >= th.VerseMinEnergy && s.Energy < th.VerseMaxEnergy
		}, Verse},
		{"bridge", func(s Stats, _ float64) bool {
			return s.Energy < th.BridgeEnergy
		}, Bridge},
		{"interlude", func(Stats, float64) bool { return true }, Interlude},
	}
}

// Classifier turns an interval into a Section.
type Classifier struct {
	rules []Rule
}

func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{rules: Rules(th)}
}

// Type runs the cascade. position is index / total sections.
func (c *Classifier) Type(s Stats, position float64) SectionType {
	for _, r := range c.rules {
		if r.Match(s, position) {
			return r.Result
		}
	}
	return Interlude
}

// Classify analyses [start, end) and labels it. ok is false when the interval
// holds no frames once clamped to the feature arrays.
func (c *Classifier) Classify(fs *features.FeatureSet, start, end float64, index, total int) (sec Section, ok bool) {
	st, ok := Analyze(fs, start, end)
	if !ok {
		return Section{}, false
	}
	position := 0.0
	if total > 0 {
		position = float64(index) / float64(total)
	}
	return Section{
		Index:               index,
		Start:               start,
		End:                 end,
		Duration:            end - start,
		Type:                c.Type(st, position),
		Energy:              st.Energy,
		EnergyVariation:     st.EnergyStd,
		Brightness:          st.Brightness,
		BrightnessVariation: st.BrightnessStd,
		Bandwidth:           st.Bandwidth,
		Percussiveness:      st.ZCR,
	}, true
}

// Analyze computes the interval statistics over the frames covering [start, end).
// Standard deviations and variances are population statistics.
func Analyze(fs *features.FeatureSet, start, end float64) (Stats, bool) {
	lo := fs.TimeToFrame(start)
	hi := fs.TimeToFrame(end)
	if lo < 0 {
		lo = 0
	}
	if n := fs.Frames(); hi > n {
		hi = n
	}
	if lo >= hi {
		return Stats{}, false
	}

	var st Stats
	rms := fs.Energy[lo:hi]
	st.Energy, st.EnergyStd = stat.PopMeanStdDev(rms, nil)
	st.EnergyMax = rms[0]
	for _, v := range rms[1:] {
		if v > st.EnergyMax {
			st.EnergyMax = v
		}
	}
	st.Brightness, st.BrightnessStd = stat.PopMeanStdDev(fs.SpectralCentroid[lo:hi], nil)
	st.Bandwidth = stat.Mean(fs.SpectralBandwidth[lo:hi], nil)
	st.ZCR = stat.Mean(fs.ZeroCrossingRate[lo:hi], nil)

	// variance over the whole pitch-class × frame block
	chroma := make([]float64, 0, len(fs.Chroma)*(hi-lo))
	for _, row := range fs.Chroma {
		chroma = append(chroma, row[lo:hi]...)
	}
	if len(chroma) > 0 {
		_, st.ChromaVariance = stat.PopMeanVariance(chroma, nil)
	}
	return st, true
}
