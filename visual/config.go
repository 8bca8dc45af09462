// Package visual maps classified sections onto shader directives for the renderer.
package visual

import (
	"errors"
	"fmt"

	"github.com/Lucas-MARIE/audio-viz/structure"
)

// ShaderCount is the size of the renderer's shader index space [0, ShaderCount).
const ShaderCount = 20

// Intensity is the renderer's coarse effect strength.
type Intensity string

const (
	IntensityLow        Intensity = "low"
	IntensityLowMedium  Intensity = "low-medium"
	IntensityMedium     Intensity = "medium"
	IntensityMediumHigh Intensity = "medium-high"
	IntensityHigh       Intensity = "high"
	IntensityExtreme    Intensity = "extreme"
)

func (i Intensity) valid() bool {
	switch i {
	case IntensityLow, IntensityLowMedium, IntensityMedium, IntensityMediumHigh, IntensityHigh, IntensityExtreme:
		return true
	}
	return false
}

// Config is the render configuration for one section type.
type Config struct {
	Kind       string    `json:"type" yaml:"type" mapstructure:"type"` // "shader"
	Shaders    []int     `json:"shaders" yaml:"shaders" mapstructure:"shaders"`
	Intensity  Intensity `json:"intensity" yaml:"intensity" mapstructure:"intensity"`
	BlurAmount float64   `json:"blur_amount" yaml:"blur_amount" mapstructure:"blur_amount"`
	Opacity    float64   `json:"opacity" yaml:"opacity" mapstructure:"opacity"`
}

func (c Config) clone() Config {
	c.Shaders = append([]int(nil), c.Shaders...)
	return c
}

func shader(shaders []int, intensity Intensity, blur, opacity float64) Config {
	return Config{Kind: "shader", Shaders: shaders, Intensity: intensity, BlurAmount: blur, Opacity: opacity}
}

// DefaultConfigs is the built-in section type table.
func DefaultConfigs() map[structure.SectionType]Config {
	return map[structure.SectionType]Config{
		structure.Intro:       shader([]int{0, 1, 2, 19}, IntensityLow, 4.0, 0.4),
		structure.Verse:       shader([]int{3, 4, 5, 6, 7}, IntensityMedium, 3.0, 0.5),
		structure.Chorus:      shader([]int{10, 11, 12, 15, 18}, IntensityHigh, 2.0, 0.7),
		structure.Drop:        shader([]int{13, 14, 15, 16, 17}, IntensityExtreme, 1.5, 0.8),
		structure.Buildup:     shader([]int{8, 9, 10}, IntensityMediumHigh, 2.5, 0.6),
		structure.PreDrop:     shader([]int{8, 9, 10}, IntensityHigh, 2.0, 0.7),
		structure.Bridge:      shader([]int{4, 5, 6, 7}, IntensityMedium, 3.5, 0.5),
		structure.Breakdown:   shader([]int{1, 2, 3, 19}, IntensityLowMedium, 4.0, 0.4),
		structure.Outro:       shader([]int{0, 1, 19}, IntensityLow, 5.0, 0.3),
		structure.FinalChorus: shader([]int{10, 15, 18}, IntensityExtreme, 1.5, 0.8),
		structure.Interlude:   shader([]int{2, 3, 4, 5}, IntensityMedium, 3.0, 0.5),
	}
}

// DefaultFallback applies to any type missing from the table, Unknown included.
func DefaultFallback() Config {
	return shader([]int{5, 6, 7}, IntensityMedium, 3.0, 0.5)
}

// Table is the immutable type → config lookup shared by all requests.
type Table struct {
	configs  map[structure.SectionType]Config
	fallback Config
}

// NewTable validates and copies configs. Overrides are applied on top of the defaults
// by the caller; here every entry must be complete.
func NewTable(configs map[structure.SectionType]Config, fallback Config, adj Adjust) (*Table, error) {
	t := &Table{configs: make(map[structure.SectionType]Config, len(configs))}
	var errs []error
	for st, c := range configs {
		if err := c.validate(adj); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st, err))
			continue
		}
		t.configs[st] = c.clone()
	}
	if err := fallback.validate(adj); err != nil {
		errs = append(errs, fmt.Errorf("fallback: %w", err))
	}
	t.fallback = fallback.clone()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultTable is the built-in table with the built-in fallback.
func DefaultTable() *Table {
	t, err := NewTable(DefaultConfigs(), DefaultFallback(), DefaultAdjust())
	if err != nil {
		panic(err)
	}
	return t
}

// Config returns a copy of the configuration for st, or the fallback.
func (t *Table) Config(st structure.SectionType) Config {
	if c, ok := t.configs[st]; ok {
		return c.clone()
	}
	return t.fallback.clone()
}

func (c Config) validate(adj Adjust) error {
	if c.Kind != "shader" {
		return fmt.Errorf("unsupported visualizer type %q", c.Kind)
	}
	if len(c.Shaders) == 0 {
		return errors.New("no candidate shaders")
	}
	seen := map[int]bool{}
	for _, s := range c.Shaders {
		if s < 0 || s >= ShaderCount {
			return fmt.Errorf("shader %d outside [0,%d)", s, ShaderCount)
		}
		if seen[s] {
			return fmt.Errorf("shader %d listed twice", s)
		}
		seen[s] = true
	}
	if !c.Intensity.valid() {
		return fmt.Errorf("unknown intensity %q", c.Intensity)
	}
	if c.Opacity < adj.OpacityMin || c.Opacity > adj.OpacityMax {
		return fmt.Errorf("opacity %.2f outside [%.2f,%.2f]", c.Opacity, adj.OpacityMin, adj.OpacityMax)
	}
	if c.BlurAmount < adj.BlurMin || c.BlurAmount > adj.BlurMax {
		return fmt.Errorf("blur %.2f outside [%.2f,%.2f]", c.BlurAmount, adj.BlurMin, adj.BlurMax)
	}
	return nil
}
