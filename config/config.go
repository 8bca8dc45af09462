package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Lucas-MARIE/audio-viz/structure"
	"github.com/Lucas-MARIE/audio-viz/visual"
)

// EnvPrefix prefixes environment overrides, e.g. AUDIOVIZ_SERVICES_FEATURES_URL.
const EnvPrefix = "AUDIOVIZ"

type Service struct {
	URL string `yaml:"url" mapstructure:"url"`
}
type Services struct {
	Features     Service `yaml:"features" mapstructure:"features"`
	Segmentation Service `yaml:"segmentation" mapstructure:"segmentation"` // empty = in-process clustering
	Renderer     Service `yaml:"renderer" mapstructure:"renderer"`         // empty = don't publish
	TimeoutSec   int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}
type Analysis struct {
	NSections          int `yaml:"n_sections" mapstructure:"n_sections"` // 0 = estimate from duration
	structure.Estimate `yaml:",inline" mapstructure:",squash"`
	Drops              structure.DropDetector `yaml:"drops" mapstructure:"drops"`
}
type Root struct {
	Pipeline struct {
		Name    string `yaml:"name" mapstructure:"name"`
		Version string `yaml:"version" mapstructure:"version"`
		LogLvl  string `yaml:"log_level" mapstructure:"log_level"`
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Services   Services             `yaml:"services" mapstructure:"services"`
	Analysis   Analysis             `yaml:"analysis" mapstructure:"analysis"`
	Thresholds structure.Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
	Adjust     visual.Adjust        `yaml:"adjust" mapstructure:"adjust"`
	// Visuals overrides table entries by section type label; "default" replaces the fallback.
	Visuals map[string]visual.Config `yaml:"visuals,omitempty" mapstructure:"visuals"`
	Paths   struct {
		Cache   string `yaml:"cache" mapstructure:"cache"` // empty = no feature cache
		Outputs string `yaml:"outputs" mapstructure:"outputs"`
	} `yaml:"paths" mapstructure:"paths"`
	Server struct {
		Addr        string `yaml:"addr" mapstructure:"addr"`
		MaxUploadMB int    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	} `yaml:"server" mapstructure:"server"`
}

// Default is the configuration used when no file is found.
func Default() *Root {
	var r Root
	r.Pipeline.Name = "audio-viz"
	r.Pipeline.Version = "0.1.0"
	r.Pipeline.LogLvl = "info"
	r.Services.Features.URL = "http://localhost:8001"
	r.Services.TimeoutSec = 120
	r.Analysis.Estimate = structure.DefaultEstimate()
	r.Analysis.Drops = structure.DefaultDropDetector()
	r.Thresholds = structure.DefaultThresholds()
	r.Adjust = visual.DefaultAdjust()
	r.Paths.Outputs = "outputs"
	r.Server.Addr = ":5000"
	r.Server.MaxUploadMB = 100
	return &r
}

// candidates lists the files probed when no explicit path is given.
func candidates() []string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
}

// Load layers defaults, the config file and AUDIOVIZ_* environment variables.
// An explicit path must exist; otherwise the first candidate found is used, if any.
func Load(path string) (*Root, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	base, err := yaml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path == "" {
		for _, p := range candidates() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engines cannot run with.
func (r *Root) Validate() error {
	var errs []error
	e := r.Analysis.Estimate
	if e.SecondsPerSection <= 0 {
		errs = append(errs, errors.New("analysis.seconds_per_section must be positive"))
	}
	if e.MinSections < 1 || e.MinSections > e.MaxSections {
		errs = append(errs, fmt.Errorf("analysis sections range [%d,%d] invalid", e.MinSections, e.MaxSections))
	}
	if e.ContextWidth < 0 {
		errs = append(errs, errors.New("analysis.context_width must not be negative"))
	}
	if r.Analysis.NSections < 0 {
		errs = append(errs, errors.New("analysis.n_sections must not be negative"))
	}
	if r.Analysis.Drops.MinSpacing <= 0 {
		errs = append(errs, errors.New("analysis.drops.min_spacing must be positive"))
	}
	if r.Thresholds.VerseMinEnergy >= r.Thresholds.VerseMaxEnergy {
		errs = append(errs, errors.New("thresholds.verse_min_energy must be below verse_max_energy"))
	}
	a := r.Adjust
	if a.OpacityMin > a.OpacityMax || a.BlurMin > a.BlurMax {
		errs = append(errs, errors.New("adjust bounds are inverted"))
	}
	if r.Services.TimeoutSec <= 0 {
		errs = append(errs, errors.New("services.timeout_seconds must be positive"))
	}
	if _, err := r.Table(); err != nil {
		errs = append(errs, fmt.Errorf("visuals: %w", err))
	}
	return errors.Join(errs...)
}

// Table builds the section type table: built-in entries with Visuals overrides on top.
func (r *Root) Table() (*visual.Table, error) {
	configs := visual.DefaultConfigs()
	fallback := visual.DefaultFallback()
	for label, c := range r.Visuals {
		if c.Kind == "" {
			c.Kind = "shader"
		}
		if label == "default" {
			fallback = c
			continue
		}
		st := structure.ParseSectionType(label)
		if st == structure.Unknown {
			return nil, fmt.Errorf("unknown section type %q", label)
		}
		configs[st] = c
	}
	return visual.NewTable(configs, fallback, r.Adjust)
}

// Timeout is the per-request deadline for external services.
func (r *Root) Timeout() time.Duration { return DurSeconds(r.Services.TimeoutSec) }

// WriteDefault writes the default configuration as YAML, refusing to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return err
	}
	return enc.Close()
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
