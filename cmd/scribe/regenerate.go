package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/session"
)

func (c *cli) newRegenerateCmd() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "regenerate [output-dir]",
		Short: "Re-apply the confidence filter to persisted raw results",
		Long: `Regenerate rebuilds every cue track below output-dir (default:
paths.output_dir) from its persisted raw result using the given threshold.
The recogniser is never called.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			root := cfg.Paths.OutputDir
			if len(args) == 1 {
				root = args[0]
			}
			t := cfg.Combine.Threshold()
			if cmd.Flags().Changed("threshold") {
				if threshold < 0 || threshold > 100 {
					return &config.ConfigurationError{Err: fmt.Errorf("--threshold %v must be in [0, 100]", threshold)}
				}
				t = threshold
			}

			res, err := session.Regenerate(cmd.Context(), root, t, observe.DefaultMetrics())
			fmt.Fprintf(c.stdout, "regenerated %d tracks (%d cues, %d warnings) at threshold %g\n", res.Files, res.Cues, res.Warnings, t)
			for _, f := range res.Failed {
				fmt.Fprintf(c.stdout, "  failed: %s\n", f)
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", config.DefaultConfidenceThreshold, "confidence threshold in [0, 100]; 0 disables the filter")
	return cmd
}
