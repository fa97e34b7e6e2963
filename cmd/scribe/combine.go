package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/session"
	"github.com/MrWong99/scribe/internal/transcript"
)

func (c *cli) newCombineCmd() *cobra.Command {
	var (
		replay   bool
		watch    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "combine <session-dir>...",
		Short: "Combine the speakers of a session into its documents",
		Long: `Combine merges the per-speaker cue tracks of each session directory into
the combined transcript documents. Every track must resolve to a configured
speaker, otherwise nothing is written for that session.

With --replay the tracks are rebuilt from the persisted raw results using
combine.confidence_threshold. With --watch the sessions are combined again
whenever the speaker or combine settings in the config file change; watch
mode always replays.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, _, closeArchive := openArchive(ctx, cfg)
			defer closeArchive()

			build := func(cfg *config.Config) (*session.Combiner, error) {
				resolver, err := buildResolver(cfg)
				if err != nil {
					return nil, err
				}
				opts := []session.CombinerOption{session.WithCombineMetrics(observe.DefaultMetrics())}
				if replay || watch {
					opts = append(opts, session.WithReplay(cfg.Combine.Threshold()))
				}
				if store != nil {
					opts = append(opts, session.WithArchive(store, cfg.Combine.Campaign))
				}
				return session.NewCombiner(resolver, buildEngine(cfg), opts...), nil
			}

			sc, err := build(cfg)
			if err != nil {
				return err
			}
			err = c.combineAll(ctx, sc, args)
			if !watch {
				return err
			}
			return c.watchCombine(ctx, build, args, interval)
		},
	}
	cmd.Flags().BoolVar(&replay, "replay", false, "rebuild tracks from raw results with the configured threshold")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "recombine whenever the configuration changes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "config polling interval in watch mode")
	return cmd
}

// combineAll combines every dir, printing the documents written. An empty
// session is reported but still counts as a failure.
func (c *cli) combineAll(ctx context.Context, sc *session.Combiner, dirs []string) error {
	var errs []error
	for _, dir := range dirs {
		res, err := sc.Combine(ctx, dir)
		var empty *transcript.EmptySessionError
		switch {
		case errors.As(err, &empty):
			fmt.Fprintf(c.stdout, "%s: no cue survived filtering; wrote header only\n", res.Session)
		case err != nil:
			slog.Error("combine failed", "dir", dir, "err", err)
		}
		if err != nil {
			errs = append(errs, err)
		}
		if res == nil {
			continue
		}
		for _, f := range res.Files {
			fmt.Fprintf(c.stdout, "%s: wrote %s\n", res.Session, f)
		}
		if n := len(res.Warnings); n > 0 {
			fmt.Fprintf(c.stdout, "%s: skipped %d malformed cues\n", res.Session, n)
		}
	}
	return errors.Join(errs...)
}

// watchCombine polls the config file and recombines dirs whenever a change
// affects the output. It returns when ctx is cancelled.
func (c *cli) watchCombine(ctx context.Context, build func(*config.Config) (*session.Combiner, error), dirs []string, interval time.Duration) error {
	reload := make(chan *config.Config, 1)
	w, err := config.NewWatcher(ctx, c.configPath, func(r config.Reload) {
		if r.Diff.LogLevelChanged {
			slog.SetDefault(newLogger(r.Diff.NewLogLevel, c.stderr))
			slog.Info("log level changed", "level", r.Diff.NewLogLevel)
		}
		if !r.Diff.Changed() {
			return
		}
		for _, sd := range r.Diff.SpeakerChanges {
			slog.Info("speaker changed", "username", sd.Username, "added", sd.Added, "removed", sd.Removed)
		}
		// Keep only the newest pending config.
		select {
		case <-reload:
		default:
		}
		reload <- r.New
	}, config.WithInterval(interval))
	if err != nil {
		return err
	}
	defer w.Stop()

	slog.Info("watching configuration", "config", c.configPath, "sessions", len(dirs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-reload:
			sc, err := build(cfg)
			if err != nil {
				slog.Error("reloaded configuration rejected", "err", err)
				continue
			}
			if err := c.combineAll(ctx, sc, dirs); err != nil {
				slog.Warn("recombine finished with errors", "err", err)
			}
		}
	}
}
