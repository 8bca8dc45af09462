package structure

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestEstimateSections(t *testing.T) {
	e := DefaultEstimate()
	tests := []struct {
		duration float64
		want     int
	}{
		{10, 4},
		{59, 4},
		{90, 6},
		{134.9, 8},
		{300, 20},
		{1200, 20},
	}
	for _, tt := range tests {
		if got := e.Sections(tt.duration); got != tt.want {
			t.Errorf("Sections(%.1f) = %d, want %d", tt.duration, got, tt.want)
		}
	}
}

func TestAgglomerativeFindsBlockStarts(t *testing.T) {
	fs := synthTrack(
		block{Seconds: 3, Timbre: 0},
		block{Seconds: 5, Timbre: 1},
		block{Seconds: 2, Timbre: 2},
		block{Seconds: 4, Timbre: 0},
	)
	got, err := Agglomerative{}.Boundaries(context.Background(), fs.MFCCMatrix(), 4, 43)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 30, 80, 100}; !reflect.DeepEqual(got, want) {
		t.Errorf("Boundaries = %v, want %v", got, want)
	}
}

func TestAgglomerativeMoreClustersThanFrames(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	got, err := Agglomerative{}.Boundaries(context.Background(), m, 10, 43)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Boundaries = %v, want %v", got, want)
	}
	if _, err := (Agglomerative{}).Boundaries(context.Background(), nil, 4, 43); err == nil {
		t.Error("nil matrix should fail")
	}
}

type fixedClusterer struct {
	frames []int
	err    error
}

func (f fixedClusterer) Boundaries(context.Context, *mat.Dense, int, int) ([]int, error) {
	return f.frames, f.err
}

func TestDetectorDropsCollapsedBoundaries(t *testing.T) {
	fs := synthTrack(block{Seconds: 20, Energy: 0.05})
	d := NewDetector(DefaultEstimate(), fixedClusterer{frames: []int{0, 0, 50, 50, 30, 200, 500}})

	got, err := d.Boundaries(context.Background(), fs, 4)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{0, 5, 20}; !reflect.DeepEqual(got, want) {
		t.Errorf("Boundaries = %v, want %v", got, want)
	}
}

func TestDetectorPropagatesClustererError(t *testing.T) {
	fs := synthTrack(block{Seconds: 20, Energy: 0.05})
	boom := errors.New("boom")
	d := NewDetector(DefaultEstimate(), fixedClusterer{err: boom})
	if _, err := d.Boundaries(context.Background(), fs, 0); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestSegment(t *testing.T) {
	fs := synthTrack(
		block{Seconds: 30, Energy: 0.02, Brightness: 800, Timbre: 0},
		block{Seconds: 30, Energy: 0.07, Brightness: 1500, Timbre: 1},
		block{Seconds: 30, Energy: 0.20, Brightness: 3000, Timbre: 2},
		block{Seconds: 30, Energy: 0.02, Brightness: 800, Timbre: 3},
	)
	d := NewDetector(DefaultEstimate(), nil)
	sections, err := Segment(context.Background(), fs, d, NewClassifier(DefaultThresholds()), 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []SectionType{Intro, Verse, Drop, Bridge}
	if got := typesOf(sections); !reflect.DeepEqual(got, want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	for i, s := range sections {
		if s.Start != float64(i*30) || s.End != float64(i*30+30) {
			t.Errorf("section %d spans [%.2f, %.2f], want [%d, %d]", i, s.Start, s.End, i*30, i*30+30)
		}
	}
}

func TestSegmentContiguous(t *testing.T) {
	var blocks []block
	for i := 0; i < 9; i++ {
		blocks = append(blocks, block{Seconds: 7 + float64(i%4)*3, Energy: 0.02 + 0.03*float64(i%5), Brightness: 1000 + 400*float64(i%6), Timbre: i})
	}
	fs := synthTrack(blocks...)
	d := NewDetector(DefaultEstimate(), nil)
	sections, err := Segment(context.Background(), fs, d, NewClassifier(DefaultThresholds()), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) == 0 {
		t.Fatal("no sections")
	}
	if sections[0].Start != 0 {
		t.Errorf("first section starts at %v", sections[0].Start)
	}
	if last := sections[len(sections)-1]; last.End != fs.Duration {
		t.Errorf("last section ends at %v, want %v", last.End, fs.Duration)
	}
	for i, s := range sections {
		if s.Index != i {
			t.Errorf("section %d has index %d", i, s.Index)
		}
		if s.Start >= s.End {
			t.Errorf("section %d is empty: %v", i, s)
		}
		if i > 0 && sections[i-1].End != s.Start {
			t.Errorf("gap between %d and %d: %v != %v", i-1, i, sections[i-1].End, s.Start)
		}
	}
}
