package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lucas-MARIE/audio-viz/orchestrator"
)

func (a *app) suggestCmd() *cobra.Command {
	var (
		energy, brightness float64
		seed               int64
	)
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest a shader for a live energy reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := orchestrator.NewPipeline(a.conf, orchestrator.WithSeed(seed))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Suggest(energy, brightness))
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64VarP(&energy, "energy", "e", 0, "RMS energy reading")
	f.Float64VarP(&brightness, "brightness", "b", 0, "spectral centroid in Hz")
	f.Int64Var(&seed, "seed", 0, "selection seed (0 = random)")
	cmd.MarkFlagRequired("energy")
	return cmd
}
