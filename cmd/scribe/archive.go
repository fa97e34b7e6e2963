package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/scribe/internal/archive"
	"github.com/MrWong99/scribe/internal/config"
	"github.com/MrWong99/scribe/pkg/cue"
)

func (c *cli) newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Query combined sessions stored in PostgreSQL",
		Long: `archive reads the runs stored by combine and batch when
archive.postgres_dsn is configured.`,
	}
	cmd.AddCommand(c.newArchiveRunsCmd(), c.newArchiveSearchCmd())
	return cmd
}

// withArchive loads the config and connects to the archive for a read-only
// query. Unlike a combine, an unreachable archive fails the command.
func (c *cli) withArchive(ctx context.Context, fn func(archive.Store) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Archive.PostgresDSN == "" {
		return &config.ConfigurationError{Err: errors.New("archive.postgres_dsn is not set")}
	}
	pg, err := archive.NewPostgres(ctx, cfg.Archive.PostgresDSN)
	if err != nil {
		return err
	}
	defer pg.Close()
	return fn(pg)
}

func (c *cli) newArchiveRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs <session>",
		Short: "List the archived runs of a session, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withArchive(cmd.Context(), func(s archive.Store) error {
				runs, err := s.Runs(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintf(c.stdout, "no archived runs for %q\n", args[0])
					return nil
				}
				for _, r := range runs {
					fmt.Fprintf(c.stdout, "%s  %s  %d cues in %d documents  %s\n",
						r.CombinedAt.Local().Format("2006-01-02 15:04"), r.ID, r.Kept, r.Chunks, r.Campaign)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of runs; 0 lists all")
	return cmd
}

func (c *cli) newArchiveSearchCmd() *cobra.Command {
	var opts archive.SearchOpts
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Full-text search over archived cue text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return c.withArchive(cmd.Context(), func(s archive.Store) error {
				hits, err := s.Search(cmd.Context(), query, opts)
				if err != nil {
					return err
				}
				for _, h := range hits {
					fmt.Fprintf(c.stdout, "%s [%s] %s: %s\n", h.Session, cue.FormatTimestamp(h.Start), h.Label, h.Text)
				}
				fmt.Fprintf(c.stdout, "%d matches\n", len(hits))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Session, "session", "", "only search this session")
	cmd.Flags().StringVar(&opts.Speaker, "speaker", "", "only search this username")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of matches; 0 returns all")
	return cmd
}
