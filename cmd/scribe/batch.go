package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrWong99/scribe/internal/batch"
	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/internal/health"
	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/session"
)

func (c *cli) newBatchCmd() *cobra.Command {
	var (
		listen string
		jobs   int
		quiet  bool
	)
	cmd := &cobra.Command{
		Use:   "batch [input-dir]",
		Short: "Transcribe a whole input tree and combine every session",
		Long: `Batch discovers every supported recording below input-dir (default:
paths.input_dir), transcribes them with batch.parallel_jobs workers and then
combines each session whose recordings all succeeded. A live status table is
drawn on stderr unless --quiet is given.

With --listen (or server.listen_addr) the run exposes /healthz, /readyz,
/status and /metrics. With batch.redis_addr every status change is mirrored
into a Redis hash.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Paths.InputDir = args[0]
			}
			if cmd.Flags().Changed("jobs") {
				cfg.Batch.ParallelJobs = jobs
			}
			if cmd.Flags().Changed("listen") {
				cfg.Server.ListenAddr = listen
			}
			rep, err := c.runBatch(cmd.Context(), cfg, quiet)
			if rep != nil {
				fmt.Fprint(c.stdout, batch.RenderReport(rep))
			}
			if err != nil {
				return err
			}
			if !rep.OK() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address for the status server (overrides server.listen_addr)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "parallel transcriptions (overrides batch.parallel_jobs)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not draw the live status table")
	return cmd
}

func (c *cli) runBatch(ctx context.Context, cfg *config.Config, quiet bool) (*batch.Report, error) {
	files, err := session.DiscoverAudio(cfg.Paths.InputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported recordings below %q", cfg.Paths.InputDir)
	}
	resolver, err := buildResolver(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	m := observe.DefaultMetrics()
	var tel *observe.Telemetry
	if cfg.Server.ListenAddr != "" {
		tel, err = observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "scribe",
			ServiceVersion: version,
		})
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				slog.Warn("telemetry shutdown", "err", err)
			}
		}()
		m = tel.Metrics
	}

	rec, err := buildRecogniser(cfg, c.registry, m)
	if err != nil {
		return nil, err
	}
	defer rec.Close()
	t, err := buildTranscriber(cfg, c.registry, rec, m)
	if err != nil {
		return nil, err
	}

	store, archiveCheck, closeArchive := openArchive(ctx, cfg)
	defer closeArchive()
	combineOpts := []session.CombinerOption{session.WithCombineMetrics(m)}
	if store != nil {
		combineOpts = append(combineOpts, session.WithArchive(store, cfg.Combine.Campaign))
	}
	sc := session.NewCombiner(resolver, buildEngine(cfg), combineOpts...)

	runID := uuid.New()
	opts := []batch.Option{batch.WithJobs(cfg.Batch.ParallelJobs), batch.WithRunID(runID)}
	if !quiet {
		opts = append(opts, batch.WithLiveTable(c.stderr, time.Second))
	}
	if cfg.Batch.RedisAddr != "" {
		rb, err := batch.NewRedisBoard(ctx, cfg.Batch.RedisAddr, runID)
		if err != nil {
			slog.Warn("redis status mirror unavailable", "addr", cfg.Batch.RedisAddr, "err", err)
		} else {
			defer rb.Close()
			slog.Info("mirroring batch status", "key", rb.Key())
			opts = append(opts, batch.WithMirror(rb))
		}
	}
	runner := batch.NewRunner(t, sc, layoutFor(cfg), opts...)

	if cfg.Server.ListenAddr != "" {
		ffmpeg := cfg.Audio.FFmpegPath
		if ffmpeg == "" {
			ffmpeg = "ffmpeg"
		}
		checks := []health.Checker{
			health.DirWritable("output_dir", cfg.Paths.OutputDir),
			health.Executable("ffmpeg", ffmpeg),
		}
		checks = append(checks, rec.checkers(providerNames(cfg))...)
		if archiveCheck != nil {
			checks = append(checks, *archiveCheck)
		}
		h := health.New(checks...)
		h.SetStatus(runner.Board().View)
		stop, err := startStatusServer(cfg.Server.ListenAddr, h, tel)
		if err != nil {
			return nil, fmt.Errorf("status server: %w", err)
		}
		defer stop()
	}

	slog.Info("batch started", "run_id", runID, "files", len(files), "jobs", cfg.Batch.ParallelJobs)
	return runner.Run(ctx, files)
}
