package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/Lucas-MARIE/audio-viz/cache"
	cfg "github.com/Lucas-MARIE/audio-viz/config"
	"github.com/Lucas-MARIE/audio-viz/features"
	"github.com/Lucas-MARIE/audio-viz/structure"
)

// track builds 10 frames/s features: quiet intro, verse, loud drop with a spike, quiet tail.
func track() *features.FeatureSet {
	fs := &features.FeatureSet{SampleRate: 1000, HopLength: 100, Tempo: 128, BeatTimes: []float64{0.5, 1}}
	parts := []struct {
		frames     int
		energy     float64
		brightness float64
	}{{300, 0.02, 800}, {300, 0.07, 1500}, {300, 0.2, 3200}, {300, 0.02, 900}}
	fs.MFCC = make([][]float64, len(parts))
	fs.Chroma = [][]float64{nil}
	for pi, part := range parts {
		for i := 0; i < part.frames; i++ {
			fs.Energy = append(fs.Energy, part.energy)
			fs.SpectralCentroid = append(fs.SpectralCentroid, part.brightness)
			fs.SpectralBandwidth = append(fs.SpectralBandwidth, 1500)
			fs.ZeroCrossingRate = append(fs.ZeroCrossingRate, 0.1)
			fs.OnsetStrength = append(fs.OnsetStrength, 1)
			fs.Chroma[0] = append(fs.Chroma[0], 0.5)
			for c := range fs.MFCC {
				v := 0.0
				if c == pi {
					v = 1
				}
				fs.MFCC[c] = append(fs.MFCC[c], v)
			}
		}
	}
	fs.Energy[750] = 0.9
	fs.Duration = 120
	return fs
}

func newTestPipeline(t *testing.T, c *cfg.Root, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(c, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAnalyze(t *testing.T) {
	c := cfg.Default()
	c.Analysis.NSections = 4
	p := newTestPipeline(t, c, WithSeed(42))

	res, err := p.Analyze(context.Background(), track())
	if err != nil {
		t.Fatalf("Analyze = %v", err)
	}
	var types []structure.SectionType
	for _, s := range res.Sections {
		types = append(types, s.Type)
	}
	if want := []structure.SectionType{structure.Intro, structure.Verse, structure.Drop, structure.Bridge}; !reflect.DeepEqual(types, want) {
		t.Errorf("types = %v, want %v", types, want)
	}
	if len(res.Timeline) != len(res.Sections) {
		t.Fatalf("timeline has %d entries for %d sections", len(res.Timeline), len(res.Sections))
	}
	for i := range res.Timeline {
		if res.Timeline[i].SectionIndex != res.Sections[i].Index {
			t.Errorf("entry %d points at section %d", i, res.Timeline[i].SectionIndex)
		}
	}
	if !reflect.DeepEqual(res.Drops, []float64{75}) {
		t.Errorf("Drops = %v, want [75]", res.Drops)
	}
	if res.Stats.TotalSections != 4 || res.Stats.SectionTypes["drop"] != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}

	again, _ := p.Analyze(context.Background(), track())
	if !reflect.DeepEqual(res.Timeline, again.Timeline) {
		t.Error("seeded pipeline should reproduce its timeline")
	}
}

func TestAnalyzeRejectsBrokenFeatures(t *testing.T) {
	p := newTestPipeline(t, cfg.Default())
	fs := track()
	fs.SpectralCentroid = fs.SpectralCentroid[:10]
	if _, err := p.Analyze(context.Background(), fs); !errors.Is(err, features.ErrInvalidFeatures) {
		t.Errorf("err = %v, want ErrInvalidFeatures", err)
	}
}

func TestRunUsesCacheAndPublishes(t *testing.T) {
	payload, _ := json.Marshal(track())
	var extractions, published atomic.Int32
	extractor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		extractions.Add(1)
		w.Write(payload)
	}))
	defer extractor.Close()
	renderer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		published.Add(1)
		io.WriteString(w, `{"status":"ok"}`)
	}))
	defer renderer.Close()

	store, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c := cfg.Default()
	c.Services.Features.URL = extractor.URL
	c.Services.Renderer.URL = renderer.URL
	p := newTestPipeline(t, c, WithCache(store), WithSeed(1))

	audio := filepath.Join(t.TempDir(), "song.mp3")
	os.WriteFile(audio, []byte("ID3 fake"), 0o644)

	for i := 0; i < 2; i++ {
		res, err := p.Run(context.Background(), audio)
		if err != nil {
			t.Fatalf("Run #%d = %v", i, err)
		}
		if res.Filename != "song.mp3" || len(res.Sections) == 0 {
			t.Errorf("Run #%d result = %+v", i, res)
		}
	}
	if n := extractions.Load(); n != 1 {
		t.Errorf("extraction service called %d times, want 1", n)
	}
	if n := published.Load(); n != 2 {
		t.Errorf("renderer received %d timelines, want 2", n)
	}
}

func TestRunFailsOnExtractionError(t *testing.T) {
	extractor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot decode", http.StatusInternalServerError)
	}))
	defer extractor.Close()

	c := cfg.Default()
	c.Services.Features.URL = extractor.URL
	p := newTestPipeline(t, c)

	audio := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(audio, []byte("junk"), 0o644)
	if res, err := p.Run(context.Background(), audio); err == nil || res != nil {
		t.Errorf("Run = %v, %v; want failure and no result", res, err)
	}
}

func TestSuggest(t *testing.T) {
	p := newTestPipeline(t, cfg.Default())
	for i := 0; i < 50; i++ {
		got := p.Suggest(0.05, 1000)
		if got < 3 || got > 8 {
			t.Fatalf("Suggest(0.05) = %d, want 3..8", got)
		}
	}
}

func TestPersist(t *testing.T) {
	root := t.TempDir()
	res := &Result{Filename: "a.wav", Duration: 10, Drops: []float64{}, Stats: Stats{TotalSections: 0}}
	sid, path, err := Persist(root, "/tmp/a.wav", res)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != filepath.Join(root, sid) {
		t.Errorf("path %s not inside session %s", path, sid)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got["session_id"] != sid || got["filename"] != "a.wav" || got["audio_path"] != "/tmp/a.wav" {
		t.Errorf("persisted bundle = %v", got)
	}
}

func TestPersistSessionsNeverCollide(t *testing.T) {
	root := t.TempDir()
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		sid, _, err := Persist(root, "x.wav", &Result{})
		if err != nil {
			t.Fatal(err)
		}
		if seen[sid] {
			t.Fatalf("session %s reused", sid)
		}
		seen[sid] = true
	}
}
