package orchestrator

import (
	"github.com/Lucas-MARIE/audio-viz/clients"
	"github.com/Lucas-MARIE/audio-viz/structure"
)

func stats(sections []structure.Section) Stats {
	return Stats{
		TotalSections: len(sections),
		SectionTypes:  structure.TypeCounts(sections),
	}
}

// nonNil keeps empty lists as [] rather than null in the JSON payload.
func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}

func timelineReq(res *Result) clients.TimelineReq {
	return clients.TimelineReq{
		Source:   res.Filename,
		Duration: res.Duration,
		Tempo:    res.Tempo,
		Drops:    res.Drops,
		Timeline: res.Timeline,
	}
}
