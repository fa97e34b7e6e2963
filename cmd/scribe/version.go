package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func (c *cli) newVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.stdout, "scribe %s\n", version)
			if verbose {
				fmt.Fprintf(c.stdout, "  go:       %s\n", runtime.Version())
				fmt.Fprintf(c.stdout, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			}
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include build details")
	return cmd
}
