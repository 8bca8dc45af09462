package structure

import (
	"math/rand"
	"reflect"
	"testing"
)

func sectionsOf(types ...SectionType) []Section {
	out := make([]Section, len(types))
	for i, t := range types {
		out[i] = Section{Index: i, Start: float64(i * 10), End: float64(i*10 + 10), Duration: 10, Type: t}
	}
	return out
}

func typesOf(sections []Section) []SectionType {
	out := make([]SectionType, len(sections))
	for i, s := range sections {
		out[i] = s.Type
	}
	return out
}

func TestRefine(t *testing.T) {
	tests := []struct {
		name    string
		in      []SectionType
		want    []SectionType
		changed int
	}{
		{"interlude between choruses", []SectionType{Chorus, Interlude, Chorus}, []SectionType{Chorus, Bridge, Chorus}, 1},
		{"interlude after one chorus", []SectionType{Chorus, Interlude, Verse}, []SectionType{Chorus, Interlude, Verse}, 0},
		{"buildup before drop", []SectionType{Verse, Buildup, Drop}, []SectionType{Verse, PreDrop, Drop}, 1},
		{"buildup before chorus", []SectionType{Intro, Buildup, Chorus, Outro}, []SectionType{Intro, PreDrop, Chorus, Outro}, 1},
		{"buildup before verse", []SectionType{Intro, Buildup, Verse}, []SectionType{Intro, Buildup, Verse}, 0},
		{"edges are never relabelled", []SectionType{Buildup, Drop, Interlude}, []SectionType{Buildup, Drop, Interlude}, 0},
		{"too short", []SectionType{Buildup, Drop}, []SectionType{Buildup, Drop}, 0},
		{"alternating bridges", []SectionType{Chorus, Interlude, Chorus, Interlude, Chorus}, []SectionType{Chorus, Bridge, Chorus, Bridge, Chorus}, 2},
		{"no cascade", []SectionType{Verse, Buildup, Buildup, Chorus}, []SectionType{Verse, Buildup, PreDrop, Chorus}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := sectionsOf(tt.in...)
			if got := Refine(sections); got != tt.changed {
				t.Errorf("Refine changed %d sections, want %d", got, tt.changed)
			}
			if got := typesOf(sections); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("types = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefineIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	all := SectionTypes()
	for iter := 0; iter < 500; iter++ {
		types := make([]SectionType, 2+rng.Intn(12))
		for i := range types {
			types[i] = all[rng.Intn(len(all))]
		}
		sections := sectionsOf(types...)
		Refine(sections)
		once := typesOf(sections)
		if n := Refine(sections); n != 0 {
			t.Fatalf("second pass over %v changed %d sections (after first pass: %v)", types, n, once)
		}
	}
}
