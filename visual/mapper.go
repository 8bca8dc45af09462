package visual

import (
	"math"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Lucas-MARIE/audio-viz/structure"
)

// Rand is the only source of randomness in the package. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// NewRand returns a seeded source; seed 0 seeds from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Adjust holds the energy/brightness adaptation applied to a config copy.
type Adjust struct {
	HighEnergy   float64 `yaml:"high_energy" mapstructure:"high_energy"`
	LowEnergy    float64 `yaml:"low_energy" mapstructure:"low_energy"`
	OpacityBoost float64 `yaml:"opacity_boost" mapstructure:"opacity_boost"`
	OpacityCut   float64 `yaml:"opacity_cut" mapstructure:"opacity_cut"`
	OpacityMin   float64 `yaml:"opacity_min" mapstructure:"opacity_min"`
	OpacityMax   float64 `yaml:"opacity_max" mapstructure:"opacity_max"`

	BrightHz  float64 `yaml:"bright_hz" mapstructure:"bright_hz"`
	DullHz    float64 `yaml:"dull_hz" mapstructure:"dull_hz"`
	BlurCut   float64 `yaml:"blur_cut" mapstructure:"blur_cut"`
	BlurBoost float64 `yaml:"blur_boost" mapstructure:"blur_boost"`
	BlurMin   float64 `yaml:"blur_min" mapstructure:"blur_min"`
	BlurMax   float64 `yaml:"blur_max" mapstructure:"blur_max"`

	TransitionEnergy float64 `yaml:"transition_energy" mapstructure:"transition_energy"`
}

func DefaultAdjust() Adjust {
	return Adjust{
		HighEnergy:       0.12,
		LowEnergy:        0.03,
		OpacityBoost:     0.2,
		OpacityCut:       0.1,
		OpacityMin:       0.3,
		OpacityMax:       0.9,
		BrightHz:         3000,
		DullHz:           1500,
		BlurCut:          0.5,
		BlurBoost:        1.0,
		BlurMin:          1.0,
		BlurMax:          6.0,
		TransitionEnergy: 0.05,
	}
}

// Apply adapts c to a section's measured energy and brightness. c is a copy.
// Opacity and blur always end within their bounds.
func (a Adjust) Apply(c Config, energy, brightness float64) Config {
	switch {
	case energy > a.HighEnergy:
		c.Opacity += a.OpacityBoost
	case energy < a.LowEnergy:
		c.Opacity -= a.OpacityCut
	}
	switch {
	case brightness > a.BrightHz:
		c.BlurAmount -= a.BlurCut
	case brightness < a.DullHz:
		c.BlurAmount += a.BlurBoost
	}
	c.Opacity = clamp(c.Opacity, a.OpacityMin, a.OpacityMax)
	c.BlurAmount = clamp(c.BlurAmount, a.BlurMin, a.BlurMax)
	return c
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// ShaderPair is the dual-layer selection: one sharp layer, one blurred.
type ShaderPair struct {
	Sharp   int `json:"sharp"`
	Blurred int `json:"blurred"`
}

// TimelineEntry is one render directive, aligned with a section.
type TimelineEntry struct {
	Time           float64               `json:"time"`
	Duration       float64               `json:"duration"`
	SectionIndex   int                   `json:"section_index"`
	SectionType    structure.SectionType `json:"section_type"`
	VisualizerType string                `json:"visualizer_type"`
	ShaderIndex    int                   `json:"shader_index"`
	ShaderPair     ShaderPair            `json:"shader_pair"`
	Intensity      Intensity             `json:"intensity"`
	BlurAmount     float64               `json:"blur_amount"`
	Opacity        float64               `json:"opacity"`
	Energy         float64               `json:"energy"`
	Brightness     float64               `json:"brightness"`
	IsTransition   bool                  `json:"is_transition"`
}

// Mapper builds timelines. It is cheap to create; build one per request since
// the random source is not safe for concurrent use.
type Mapper struct {
	table  *Table
	adjust Adjust
	rng    Rand
}

func NewMapper(table *Table, adjust Adjust, rng Rand) *Mapper {
	if table == nil {
		table = DefaultTable()
	}
	if rng == nil {
		rng = NewRand(0)
	}
	return &Mapper{table: table, adjust: adjust, rng: rng}
}

// Timeline maps every section to an entry, in order. tempo is accepted for
// tempo-synced effects and is not read yet.
func (m *Mapper) Timeline(sections []structure.Section, tempo float64) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(sections))
	transitions := 0
	for i, s := range sections {
		base := m.table.Config(s.Type)
		primary := base.Shaders[m.rng.Intn(len(base.Shaders))]
		cfg := m.adjust.Apply(base, s.Energy, s.Brightness)

		e := TimelineEntry{
			Time:           s.Start,
			Duration:       s.Duration,
			SectionIndex:   s.Index,
			SectionType:    s.Type,
			VisualizerType: cfg.Kind,
			ShaderIndex:    primary,
			ShaderPair:     m.pair(cfg.Shaders),
			Intensity:      cfg.Intensity,
			BlurAmount:     cfg.BlurAmount,
			Opacity:        cfg.Opacity,
			Energy:         s.Energy,
			Brightness:     s.Brightness,
			IsTransition:   m.isTransition(sections, i),
		}
		if e.IsTransition {
			transitions++
		}
		out = append(out, e)
	}
	log.WithFields(log.Fields{
		"entries":     len(out),
		"transitions": transitions,
		"tempo":       tempo,
	}).Debug("visualization timeline built")
	return out
}

// pair draws two distinct shaders from the candidates, or pads a single
// candidate with a distinct index from the whole shader space.
func (m *Mapper) pair(shaders []int) ShaderPair {
	if len(shaders) >= 2 {
		i := m.rng.Intn(len(shaders))
		j := m.rng.Intn(len(shaders) - 1)
		if j >= i {
			j++
		}
		return ShaderPair{Sharp: shaders[i], Blurred: shaders[j]}
	}
	sharp := shaders[0]
	blurred := m.rng.Intn(ShaderCount)
	for blurred == sharp {
		blurred = m.rng.Intn(ShaderCount)
	}
	return ShaderPair{Sharp: sharp, Blurred: blurred}
}

// isTransition is false at both ends; elsewhere a type change or an energy jump counts.
func (m *Mapper) isTransition(sections []structure.Section, i int) bool {
	if i == 0 || i >= len(sections)-1 {
		return false
	}
	prev, cur := sections[i-1], sections[i]
	return prev.Type != cur.Type || math.Abs(cur.Energy-prev.Energy) > m.adjust.TransitionEnergy
}
