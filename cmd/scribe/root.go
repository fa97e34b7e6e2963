package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/internal/session"
	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/internal/transcript"
)

// cli holds the state shared by all subcommands.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	registry *config.Registry
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{
		stdout:   stdout,
		stderr:   stderr,
		registry: config.NewRegistry(),
	}
	registerBuiltinProviders(c.registry)

	root := &cobra.Command{
		Use:   "scribe",
		Short: "Combine per-speaker session recordings into one transcript",
		Long: `scribe transcribes one recording per participant of a session and merges
the results into a chronologically ordered, speaker-labelled transcript.

Typical layout:
  tmp/input/<session>/<n>-<username>.flac      recordings
  tmp/output/<session>/<stem>/<stem>.vtt       per-speaker cue tracks
  tmp/output/<session>/<session>-combined.txt  combined transcript

Examples:
  scribe batch
  scribe transcribe tmp/input/session-04/3-nilbits_16khz.flac
  scribe regenerate --threshold 60
  scribe combine tmp/output/session-04 --watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override server.log_level (debug, info, warn, error)")

	root.AddCommand(
		c.newTranscribeCmd(),
		c.newRegenerateCmd(),
		c.newCombineCmd(),
		c.newBatchCmd(),
		c.newArchiveCmd(),
		c.newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration and installs the logger.
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Server.LogLevel
	if c.logLevel != "" {
		level = config.LogLevel(c.logLevel)
		if !level.IsValid() {
			return nil, &config.ConfigurationError{Err: fmt.Errorf("--log-level %q is invalid; valid values: debug, info, warn, error", c.logLevel)}
		}
		cfg.Server.LogLevel = level
	}
	slog.SetDefault(newLogger(level, c.stderr))
	slog.Debug("configuration loaded", "config", c.configPath, "speakers", len(cfg.Speakers))
	return cfg, nil
}

func layoutFor(cfg *config.Config) session.Layout {
	return session.Layout{InputDir: cfg.Paths.InputDir, OutputDir: cfg.Paths.OutputDir}
}

// buildResolver fails with a configuration error when no speaker is
// configured, since every session would then fail to resolve.
func buildResolver(cfg *config.Config) (*speaker.Resolver, error) {
	if len(cfg.Speakers) == 0 {
		return nil, &config.ConfigurationError{Err: errors.New("speakers: at least one speaker mapping is required")}
	}
	r, err := speaker.NewResolver(cfg.Speakers)
	if err != nil {
		return nil, &config.ConfigurationError{Err: err}
	}
	return r, nil
}

func buildEngine(cfg *config.Config) *transcript.Combiner {
	cc := cfg.Combine
	return transcript.NewCombiner(
		transcript.WithPatterns(cc.Patterns...),
		transcript.WithDedup(cc.Dedup),
		transcript.WithChunking(cc.Chunks, cc.MinEntriesPerChunk),
		transcript.WithRenderOptions(transcript.RenderOptions{
			Campaign:          cc.Campaign,
			IncludeTimestamps: cc.IncludeTimestamps,
		}),
	)
}
