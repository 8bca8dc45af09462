// Package cli implements the audio-viz command line.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Lucas-MARIE/audio-viz/cache"
	"github.com/Lucas-MARIE/audio-viz/config"
	"github.com/Lucas-MARIE/audio-viz/orchestrator"
)

// Version is set at build time with -ldflags "-X github.com/Lucas-MARIE/audio-viz/cli.Version=...".
var Version = "dev"

// skipConfig marks commands that must run without a loadable config.
const skipConfig = "skip-config"

type app struct {
	cfgPath  string
	logLevel string
	jsonLogs bool

	conf *config.Root
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "audio-viz",
		Short:             "Music structure analysis and visualization timelines",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "config file (default config/$CONFIG_ENV/config.yaml or ./config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level, overrides pipeline.log_level")
	pf.BoolVar(&a.jsonLogs, "json-logs", false, "emit logs as JSON")

	root.AddCommand(
		a.analyzeCmd(),
		a.suggestCmd(),
		a.serveCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		PrintError(os.Stderr, err.Error())
	}
	return err
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.jsonLogs {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(cmd.ErrOrStderr())

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using process environment")
	}
	if _, ok := cmd.Annotations[skipConfig]; ok {
		return a.applyLevel("")
	}

	conf, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.conf = conf
	return a.applyLevel(conf.Pipeline.LogLvl)
}

func (a *app) applyLevel(fromConfig string) error {
	lvl := a.logLevel
	if lvl == "" {
		lvl = fromConfig
	}
	if lvl == "" {
		return nil
	}
	parsed, err := log.ParseLevel(lvl)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(parsed)
	return nil
}

// pipeline builds a pipeline from the loaded config, opening the feature cache
// when a directory is configured. The returned closer is never nil.
func (a *app) pipeline(cacheDir string, opts ...orchestrator.Option) (*orchestrator.Pipeline, func(), error) {
	closer := func() {}
	if cacheDir == "" {
		cacheDir = a.conf.Paths.Cache
	}
	if cacheDir != "" {
		store, err := cache.Open(cacheDir)
		if err != nil {
			return nil, closer, err
		}
		closer = func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("feature cache close failed")
			}
		}
		opts = append(opts, orchestrator.WithCache(store))
	}
	p, err := orchestrator.NewPipeline(a.conf, opts...)
	if err != nil {
		closer()
		return nil, func() {}, err
	}
	return p, closer, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: ""},
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, TitleStyle.Render("audio-viz"))
			fmt.Fprintln(w, keyValue("Version", Version))
		},
	}
}
