// Package structure segments a track into labelled sections and finds energy drops.
package structure

import (
	"fmt"
	"strings"
)

// SectionType is the structural role assigned to a section.
type SectionType int

const (
	Unknown SectionType = iota
	Intro
	Verse
	Chorus
	Drop
	Buildup
	PreDrop
	Bridge
	Breakdown
	Outro
	FinalChorus
	Interlude
)

var sectionTypeNames = [...]string{
	Unknown:     "unknown",
	Intro:       "intro",
	Verse:       "verse",
	Chorus:      "chorus",
	Drop:        "drop",
	Buildup:     "buildup",
	PreDrop:     "pre_drop",
	Bridge:      "bridge",
	Breakdown:   "breakdown",
	Outro:       "outro",
	FinalChorus: "final_chorus",
	Interlude:   "interlude",
}

// SectionTypes lists every known type except Unknown.
func SectionTypes() []SectionType {
	out := make([]SectionType, 0, len(sectionTypeNames)-1)
	for t := Intro; int(t) < len(sectionTypeNames); t++ {
		out = append(out, t)
	}
	return out
}

func (t SectionType) String() string {
	if t < 0 || int(t) >= len(sectionTypeNames) {
		return sectionTypeNames[Unknown]
	}
	return sectionTypeNames[t]
}

// ParseSectionType maps a label to its type; unrecognised labels yield Unknown.
func ParseSectionType(s string) SectionType {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range sectionTypeNames {
		if name == s {
			return SectionType(i)
		}
	}
	return Unknown
}

func (t SectionType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *SectionType) UnmarshalText(b []byte) error {
	*t = ParseSectionType(string(b))
	return nil
}

// Section is a contiguous, labelled interval of the track.
type Section struct {
	Index    int         `json:"index"`
	Start    float64     `json:"start"` // sec
	End      float64     `json:"end"`   // sec
	Duration float64     `json:"duration"`
	Type     SectionType `json:"type"`

	Energy              float64 `json:"energy"`
	EnergyVariation     float64 `json:"energy_variation"`
	Brightness          float64 `json:"brightness"`
	BrightnessVariation float64 `json:"brightness_variation"`
	Bandwidth           float64 `json:"bandwidth"`
	Percussiveness      float64 `json:"percussiveness"`
}

func (s Section) String() string {
	return fmt.Sprintf("#%d %s [%.2f-%.2f] energy=%.3f brightness=%.0f", s.Index, s.Type, s.Start, s.End, s.Energy, s.Brightness)
}

// Stats are the per-interval statistics the classifier works on.
type Stats struct {
	Energy         float64
	EnergyStd      float64
	EnergyMax      float64
	Brightness     float64
	BrightnessStd  float64
	Bandwidth      float64
	ZCR            float64
	ChromaVariance float64 // not published on Section
}

// TypeCounts counts sections per type label.
func TypeCounts(sections []Section) map[string]int {
	counts := map[string]int{}
	for _, s := range sections {
		counts[s.Type.String()]++
	}
	return counts
}

// Summary renders counts in order of first appearance, e.g. "2x verse, 1x chorus".
func Summary(sections []Section) string {
	counts := TypeCounts(sections)
	var parts []string
	seen := map[SectionType]bool{}
	for _, s := range sections {
		if seen[s.Type] {
			continue
		}
		seen[s.Type] = true
		parts = append(parts, fmt.Sprintf("%dx %s", counts[s.Type.String()], s.Type))
	}
	return strings.Join(parts, ", ")
}
