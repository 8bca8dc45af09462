package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Lucas-MARIE/audio-viz/server"
)

func (a *app) serveCmd() *cobra.Command {
	var addr, cacheDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.conf.Server.Addr
			}
			p, closeCache, err := a.pipeline(cacheDir)
			if err != nil {
				return err
			}
			defer closeCache()

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(p, a.conf.Server.MaxUploadMB).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			log.WithFields(log.Fields{
				"addr":     addr,
				"features": a.conf.Services.Features.URL,
			}).Info("server listening")

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().StringVar(&cacheDir, "cache", "", "feature cache directory (default paths.cache)")
	return cmd
}
