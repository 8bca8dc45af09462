package orchestrator

import (
	"github.com/Lucas-MARIE/audio-viz/structure"
	"github.com/Lucas-MARIE/audio-viz/visual"
)

// Result is the full analysis payload for one track.
type Result struct {
	Filename  string                 `json:"filename,omitempty"`
	Duration  float64                `json:"duration"` // sec
	Tempo     float64                `json:"tempo"`    // BPM
	BeatTimes []float64              `json:"beat_times"`
	Sections  []structure.Section    `json:"sections"`
	Drops     []float64              `json:"drops"`
	Timeline  []visual.TimelineEntry `json:"visualization_timeline"`
	Stats     Stats                  `json:"stats"`
}

type Stats struct {
	TotalSections int            `json:"total_sections"`
	SectionTypes  map[string]int `json:"section_type_counts"`
}
