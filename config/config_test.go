package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Lucas-MARIE/audio-viz/structure"
	"github.com/Lucas-MARIE/audio-viz/visual"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Analysis.Estimate != structure.DefaultEstimate() {
		t.Errorf("Estimate = %+v", cfg.Analysis.Estimate)
	}
	if cfg.Thresholds != structure.DefaultThresholds() {
		t.Errorf("Thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Adjust != visual.DefaultAdjust() {
		t.Errorf("Adjust = %+v", cfg.Adjust)
	}
	if cfg.Server.Addr != ":5000" || cfg.Timeout().Seconds() != 120 {
		t.Errorf("server/timeout defaults not applied: %+v", cfg.Server)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
pipeline:
  log_level: debug
analysis:
  n_sections: 6
  max_sections: 12
  drops:
    min_spacing: 10
thresholds:
  drop_energy: 0.2
visuals:
  chorus:
    shaders: [1, 2]
    intensity: high
    blur_amount: 2
    opacity: 0.6
`)
	t.Setenv("AUDIOVIZ_SERVICES_FEATURES_URL", "http://extractor:9000")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if cfg.Pipeline.LogLvl != "debug" || cfg.Analysis.NSections != 6 {
		t.Errorf("file values not applied: %+v %+v", cfg.Pipeline, cfg.Analysis)
	}
	if cfg.Analysis.MaxSections != 12 || cfg.Analysis.MinSections != 4 {
		t.Errorf("estimate = %+v, want max 12 with default min", cfg.Analysis.Estimate)
	}
	if cfg.Analysis.Drops.MinSpacing != 10 || cfg.Analysis.Drops.Sigma != 2 {
		t.Errorf("drops = %+v", cfg.Analysis.Drops)
	}
	if cfg.Thresholds.DropEnergy != 0.2 || cfg.Thresholds.PeakEnergy != 0.12 {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Services.Features.URL != "http://extractor:9000" {
		t.Errorf("env override ignored: %q", cfg.Services.Features.URL)
	}

	tbl, err := cfg.Table()
	if err != nil {
		t.Fatal(err)
	}
	chorus := tbl.Config(structure.Chorus)
	if len(chorus.Shaders) != 2 || chorus.Kind != "shader" || chorus.Opacity != 0.6 {
		t.Errorf("chorus override = %+v", chorus)
	}
	if tbl.Config(structure.Drop).Intensity != visual.IntensityExtreme {
		t.Error("untouched entries should keep their defaults")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"inverted range": "analysis:\n  min_sections: 10\n  max_sections: 5\n",
		"unknown type":   "visuals:\n  solo:\n    shaders: [1]\n    intensity: low\n    blur_amount: 3\n    opacity: 0.5\n",
		"bad opacity":    "visuals:\n  default:\n    shaders: [1]\n    intensity: low\n    blur_amount: 3\n    opacity: 1.5\n",
		"no spacing":     "analysis:\n  drops:\n    min_spacing: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), "config.yaml", body)
			if _, err := Load(p); err == nil {
				t.Error("Load accepted an invalid config")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load accepted a missing explicit file")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "conf", "config.yaml")
	if err := WriteDefault(p); err != nil {
		t.Fatalf("WriteDefault = %v", err)
	}
	if err := WriteDefault(p); err == nil {
		t.Error("WriteDefault overwrote an existing file")
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load(written default) = %v", err)
	}
	if cfg.Thresholds != structure.DefaultThresholds() || cfg.Paths.Outputs != "outputs" {
		t.Errorf("written default did not load back: %+v", cfg)
	}
}
