// Package orchestrator wires feature extraction, segmentation, drop detection and
// visualization mapping into one analysis run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/Lucas-MARIE/audio-viz/cache"
	"github.com/Lucas-MARIE/audio-viz/clients"
	cfg "github.com/Lucas-MARIE/audio-viz/config"
	"github.com/Lucas-MARIE/audio-viz/features"
	"github.com/Lucas-MARIE/audio-viz/structure"
	"github.com/Lucas-MARIE/audio-viz/visual"
)

type Pipeline struct {
	cfg   *cfg.Root
	http  *clients.HTTP
	cache *cache.Store

	detector   *structure.Detector
	classifier *structure.Classifier
	drops      structure.DropDetector
	table      *visual.Table
	bands      []visual.Band

	seed int64 // 0 = fresh clock seed per request
}

type Option func(*Pipeline)

// WithCache enables the feature cache.
func WithCache(s *cache.Store) Option { return func(p *Pipeline) { p.cache = s } }

// WithSeed pins shader selection: every request draws from a source seeded with seed.
func WithSeed(seed int64) Option { return func(p *Pipeline) { p.seed = seed } }

// WithClusterer replaces the boundary clustering backend.
func WithClusterer(c structure.Clusterer) Option {
	return func(p *Pipeline) { p.detector.Clusterer = c }
}

func NewPipeline(c *cfg.Root, opts ...Option) (*Pipeline, error) {
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	h := clients.NewHTTP(c.Timeout())

	var clusterer structure.Clusterer = structure.Agglomerative{}
	if url := c.Services.Segmentation.URL; url != "" {
		clusterer = &clients.Segmenter{HTTP: h, URL: url}
	}

	p := &Pipeline{
		cfg:        c,
		http:       h,
		detector:   structure.NewDetector(c.Analysis.Estimate, clusterer),
		classifier: structure.NewClassifier(c.Thresholds),
		drops:      c.Analysis.Drops,
		table:      table,
		bands:      visual.DefaultBands(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Pipeline) rand() visual.Rand { return visual.NewRand(p.seed) }

// Run analyses an audio file end to end. An extraction failure fails the whole run.
func (p *Pipeline) Run(ctx context.Context, audioPath string) (*Result, error) {
	fs, err := p.Features(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	res, err := p.Analyze(ctx, fs)
	if err != nil {
		return nil, err
	}
	res.Filename = filepath.Base(audioPath)

	if url := p.cfg.Services.Renderer.URL; url != "" {
		if _, err := p.http.PublishTimeline(ctx, url, timelineReq(res)); err != nil {
			log.WithError(err).WithField("file", res.Filename).Warn("renderer publish failed")
		}
	}
	return res, nil
}

// Features returns the feature set for an audio file, from the cache when possible.
func (p *Pipeline) Features(ctx context.Context, audioPath string) (*features.FeatureSet, error) {
	var key uint64
	if p.cache != nil {
		k, err := cache.FileKey(audioPath)
		if err != nil {
			return nil, err
		}
		key = k
		fs, err := p.cache.Get(key)
		if err == nil {
			log.WithField("file", audioPath).Debug("feature cache hit")
			return fs, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.WithError(err).Warn("feature cache read failed")
		}
	}

	fs, err := p.http.Extract(ctx, p.cfg.Services.Features.URL, audioPath)
	if err != nil {
		return nil, fmt.Errorf("feature extraction: %w", err)
	}
	if p.cache != nil {
		if err := p.cache.Put(key, fs); err != nil {
			log.WithError(err).Warn("feature cache write failed")
		}
	}
	return fs, nil
}

// Analyze runs the engines over an already extracted feature set.
func (p *Pipeline) Analyze(ctx context.Context, fs *features.FeatureSet) (*Result, error) {
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	sections, err := structure.Segment(ctx, fs, p.detector, p.classifier, p.cfg.Analysis.NSections)
	if err != nil {
		return nil, err
	}
	drops := p.drops.Detect(fs, sections)
	timeline := visual.NewMapper(p.table, p.cfg.Adjust, p.rand()).Timeline(sections, fs.Tempo)

	res := &Result{
		Duration:  fs.Duration,
		Tempo:     fs.Tempo,
		BeatTimes: nonNil(fs.BeatTimes),
		Sections:  sections,
		Drops:     nonNil(drops),
		Timeline:  timeline,
		Stats:     stats(sections),
	}
	log.WithFields(log.Fields{
		"duration": fmt.Sprintf("%.1fs", fs.Duration),
		"tempo":    fmt.Sprintf("%.1f", fs.Tempo),
		"sections": len(sections),
		"drops":    len(drops),
	}).Info("analysis complete: " + structure.Summary(sections))
	return res, nil
}

// Suggest is the advisory shader pick for a live energy reading.
func (p *Pipeline) Suggest(energy, brightness float64) int {
	return visual.SuggestShader(p.rand(), p.bands, energy, brightness)
}
