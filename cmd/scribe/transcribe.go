package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/session"
)

func (c *cli) newTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <audio>...",
		Short: "Transcribe recordings into persisted cue tracks",
		Long: `Transcribe converts each recording to mono PCM, splits it into speech
intervals, sends every interval to the configured recogniser and writes the
raw result, the interval mapping and the filtered cue track next to it in the
output tree. Nothing is persisted for a file whose recognition failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			m := observe.DefaultMetrics()
			rec, err := buildRecogniser(cfg, c.registry, m)
			if err != nil {
				return err
			}
			defer rec.Close()
			t, err := buildTranscriber(cfg, c.registry, rec, m)
			if err != nil {
				return err
			}

			var errs []error
			for _, path := range args {
				log := slog.With("file", path)
				res, err := t.Transcribe(cmd.Context(), path, func(p session.Progress) {
					log.Debug("progress", "status", p.String())
				})
				if err != nil {
					log.Error("transcription failed", "err", err)
					errs = append(errs, err)
					if cmd.Context().Err() != nil {
						break
					}
					continue
				}
				fmt.Fprintf(c.stdout, "%s: %d cues from %d segments (%s)\n", res.VTTPath, res.Cues, res.Segments, res.Duration.Round(time.Millisecond))
			}
			return errors.Join(errs...)
		},
	}
}
