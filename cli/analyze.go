package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/Lucas-MARIE/audio-viz/features"
	"github.com/Lucas-MARIE/audio-viz/orchestrator"
)

type analyzeOpts struct {
	fromFeatures bool
	sections     int
	seed         int64
	save         bool
	output       string
	cacheDir     string
	asJSON       bool
}

func (a *app) analyzeCmd() *cobra.Command {
	var o analyzeOpts
	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze audio files (or feature JSON dumps) and print their structure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("sections") {
				a.conf.Analysis.NSections = o.sections
			}
			if o.output == "" {
				o.output = a.conf.Paths.Outputs
			}
			return a.analyze(cmd, o, args)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.fromFeatures, "features", false, "arguments are FeatureSet JSON files, skip extraction")
	f.IntVarP(&o.sections, "sections", "n", 0, "number of sections (0 = estimate from duration)")
	f.Int64Var(&o.seed, "seed", 0, "shader selection seed (0 = random)")
	f.BoolVar(&o.save, "save", false, "write analysis.json into a session directory")
	f.StringVarP(&o.output, "output", "o", "", "outputs root for --save (default paths.outputs)")
	f.StringVar(&o.cacheDir, "cache", "", "feature cache directory (default paths.cache)")
	f.BoolVar(&o.asJSON, "json", false, "print results as JSON")
	return cmd
}

func (a *app) analyze(cmd *cobra.Command, o analyzeOpts, files []string) error {
	var opts []orchestrator.Option
	if o.seed != 0 {
		opts = append(opts, orchestrator.WithSeed(o.seed))
	}
	cacheDir := o.cacheDir
	if o.fromFeatures {
		cacheDir = ""
	}
	p, closeCache, err := a.pipeline(cacheDir, opts...)
	if err != nil {
		return err
	}
	defer closeCache()

	var bar *mpb.Bar
	var progress *mpb.Progress
	if len(files) > 1 {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(cmd.ErrOrStderr()))
		bar = progress.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("Analyzing: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.AverageETA(decor.ET_STYLE_GO),
			),
		)
	}

	ctx := cmd.Context()
	results := make([]*orchestrator.Result, 0, len(files))
	failed := 0
	for _, path := range files {
		res, err := a.analyzeOne(ctx, p, path, o.fromFeatures)
		if bar != nil {
			bar.Increment()
		}
		if err != nil {
			failed++
			log.WithError(err).WithField("file", path).Error("analysis failed")
			continue
		}
		if o.save {
			sid, out, err := orchestrator.Persist(o.output, path, res)
			if err != nil {
				failed++
				log.WithError(err).WithField("file", path).Error("save failed")
				continue
			}
			log.WithFields(log.Fields{"session": sid, "path": out}).Info("analysis saved")
		}
		results = append(results, res)
	}
	if progress != nil {
		progress.Wait()
	}

	w := cmd.OutOrStdout()
	for _, res := range results {
		if o.asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			continue
		}
		printSummary(w, res)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func (a *app) analyzeOne(ctx context.Context, p *orchestrator.Pipeline, path string, fromFeatures bool) (*orchestrator.Result, error) {
	if !fromFeatures {
		return p.Run(ctx, path)
	}
	fs, err := features.Load(path)
	if err != nil {
		return nil, err
	}
	res, err := p.Analyze(ctx, fs)
	if err != nil {
		return nil, err
	}
	res.Filename = filepath.Base(path)
	return res, nil
}
